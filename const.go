// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

const (
	PI    = 3.1415926535897932 // Pi
	C     = 2.99792458e8       // Speed of light [m/s]
	DTTOL = 0.005              // Tolerance of time difference within one epoch [s]

	FREQ1 = 1.57542e9  // L1/E1 frequency [Hz]
	FREQ2 = 1.22760e9  // L2 frequency [Hz]
	FREQ5 = 1.17645e9  // L5/E5a frequency [Hz]
	FREQ6 = 1.27875e9  // E6/LEX frequency [Hz]
	FREQ7 = 1.20714e9  // E5b frequency [Hz]
	FREQ8 = 1.191795e9 // E5a+b frequency [Hz]
	FREQ9 = 2.492028e9 // S frequency [Hz]

	G1  = 1.60200e9   // G1 frequency of Glonass [Hz]
	G1d = 0.56250e6   // Frequency division step of Glonass G1 [Hz]
	G2  = 1.24600e9   // G2 frequency of Glonass [Hz]
	G2d = 0.43750e6   // Frequency division step of Glonass G2 [Hz]
	G3  = 1.202025e9  // G3 frequency of Glonass [Hz]
	B1  = 1.561098e9  // B1 frequency of Beidou [Hz]
	B2  = 1.20714e9   // B2 frequency of Beidou [Hz]
	B3  = 1.26852e9   // B3 frequency of Beidou [Hz]
)

// Number of carrier frequencies
const NFREQ = 4

// Satellite number ranges of each system
const (
	MINPRNGPS = 1
	MAXPRNGPS = 32
	NSATGPS   = MAXPRNGPS - MINPRNGPS + 1
	MINPRNGLO = 1
	MAXPRNGLO = 27
	NSATGLO   = MAXPRNGLO - MINPRNGLO + 1
	MINPRNGAL = 1
	MAXPRNGAL = 36
	NSATGAL   = MAXPRNGAL - MINPRNGAL + 1
	MINPRNQZS = 193
	MAXPRNQZS = 202
	NSATQZS   = MAXPRNQZS - MINPRNQZS + 1
	MINPRNCMP = 1
	MAXPRNCMP = 63
	NSATCMP   = MAXPRNCMP - MINPRNCMP + 1
	MINPRNIRN = 1
	MAXPRNIRN = 14
	NSATIRN   = MAXPRNIRN - MINPRNIRN + 1
	MINPRNLEO = 1
	MAXPRNLEO = 10
	NSATLEO   = MAXPRNLEO - MINPRNLEO + 1
	MINPRNSBS = 120
	MAXPRNSBS = 158
	NSATSBS   = MAXPRNSBS - MINPRNSBS + 1

	MAXSAT = NSATGPS + NSATGLO + NSATGAL + NSATQZS + NSATCMP + NSATIRN + NSATLEO + NSATSBS
)

// Receiver index of observation data
const (
	RcvRover = 1
	RcvBase  = 2
)
