// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"fmt"
	"strconv"
	"strings"
)

// Type representing satellite system like 'G'
type SysType byte

const (
	SysNone SysType = 0
	SysGPS  SysType = 'G'
	SysGLO  SysType = 'R'
	SysGAL  SysType = 'E'
	SysQZS  SysType = 'J'
	SysCMP  SysType = 'C'
	SysIRN  SysType = 'I'
	SysLEO  SysType = 'L'
	SysSBS  SysType = 'S'
)

// Satellite systems in the order of satellite numbering
var sysOrder = [...]struct {
	sys      SysType
	min, max int
}{
	{SysGPS, MINPRNGPS, MAXPRNGPS},
	{SysGLO, MINPRNGLO, MAXPRNGLO},
	{SysGAL, MINPRNGAL, MAXPRNGAL},
	{SysQZS, MINPRNQZS, MAXPRNQZS},
	{SysCMP, MINPRNCMP, MAXPRNCMP},
	{SysIRN, MINPRNIRN, MAXPRNIRN},
	{SysLEO, MINPRNLEO, MAXPRNLEO},
	{SysSBS, MINPRNSBS, MAXPRNSBS},
}

// Check validity of satellite system
func (p SysType) IsValid() bool {
	for _, s := range sysOrder {
		if s.sys == p {
			return true
		}
	}
	return false
}

// Sat is the dense satellite number (1..MAXSAT, 0: invalid)
type Sat int

// SatNo converts a satellite system and a prn/slot number to the satellite number
// - Returns 0 if prn is out of the range of the system
func SatNo(sys SysType, prn int) Sat {
	if prn <= 0 {
		return 0
	}
	base := 0
	for _, s := range sysOrder {
		if s.sys == sys {
			if prn < s.min || s.max < prn {
				return 0
			}
			return Sat(base + prn - s.min + 1)
		}
		base += s.max - s.min + 1
	}
	return 0
}

// SysPrn returns the satellite system and the prn/slot number
func (p Sat) SysPrn() (SysType, int) {
	if p <= 0 || MAXSAT < p {
		return SysNone, 0
	}
	n := int(p)
	for _, s := range sysOrder {
		ns := s.max - s.min + 1
		if n <= ns {
			return s.sys, n + s.min - 1
		}
		n -= ns
	}
	return SysNone, 0
}

// Sys returns the satellite system
func (p Sat) Sys() SysType {
	s, _ := p.SysPrn()
	return s
}

// Prn returns the prn/slot number
func (p Sat) Prn() int {
	_, n := p.SysPrn()
	return n
}

// String returns the satellite id (Gnn, Rnn, Enn, Jnn, Cnn, Inn, Lnn, or nnn for SBAS)
func (p Sat) String() string {
	sys, prn := p.SysPrn()
	switch sys {
	case SysGPS:
		return fmt.Sprintf("G%02d", prn-MINPRNGPS+1)
	case SysGLO:
		return fmt.Sprintf("R%02d", prn-MINPRNGLO+1)
	case SysGAL:
		return fmt.Sprintf("E%02d", prn-MINPRNGAL+1)
	case SysQZS:
		return fmt.Sprintf("J%02d", prn-MINPRNQZS+1)
	case SysCMP:
		return fmt.Sprintf("C%02d", prn-MINPRNCMP+1)
	case SysIRN:
		return fmt.Sprintf("I%02d", prn-MINPRNIRN+1)
	case SysLEO:
		return fmt.Sprintf("L%02d", prn-MINPRNLEO+1)
	case SysSBS:
		return fmt.Sprintf("%03d", prn)
	}
	return ""
}

// SatID converts a satellite id (nn, Gnn, Rnn, Enn, Jnn, Cnn, Inn, Lnn or Snn) to the satellite number
// - A bare number is taken as GPS, SBAS or QZSS prn by its range
func SatID(id string) Sat {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	if prn, err := strconv.Atoi(id); err == nil {
		switch {
		case MINPRNGPS <= prn && prn <= MAXPRNGPS:
			return SatNo(SysGPS, prn)
		case MINPRNSBS <= prn && prn <= MAXPRNSBS:
			return SatNo(SysSBS, prn)
		case MINPRNQZS <= prn && prn <= MAXPRNQZS:
			return SatNo(SysQZS, prn)
		}
		return 0
	}
	prn, err := strconv.Atoi(strings.TrimSpace(id[1:]))
	if err != nil {
		return 0
	}
	switch sys := SysType(id[0]); sys {
	case SysGPS:
		prn += MINPRNGPS - 1
	case SysGLO:
		prn += MINPRNGLO - 1
	case SysGAL:
		prn += MINPRNGAL - 1
	case SysQZS:
		prn += MINPRNQZS - 1
	case SysCMP:
		prn += MINPRNCMP - 1
	case SysIRN:
		prn += MINPRNIRN - 1
	case SysLEO:
		prn += MINPRNLEO - 1
	case SysSBS:
		prn += 100
	default:
		return 0
	}
	return SatNo(SysType(id[0]), prn)
}
