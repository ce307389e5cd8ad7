// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Maximum age of ephemeris for each system [s]
const (
	MaxDtoe    = 7201.0  // GPS, QZSS, NavIC
	MaxDtoeGAL = 14400.0 // Galileo
	MaxDtoeCMP = 21601.0 // Beidou
	MaxDtoeGLO = 1800.0  // GLONASS
	MaxDtoeSBS = 360.0   // SBAS
)

// Eph is the ephemeris of GPS, Galileo, QZSS, Beidou and NavIC (one satellite, one issue)
type Eph struct {
	Sat  Sat
	Toc  GTime // Reference time for satellite clock error correction
	Toe  GTime // Reference time for satellite orbit calculation
	Tot  GTime // Transmission time
	Iode int
	Iodc int

	Af0    float64
	Af1    float64
	Af2    float64
	Crs    float64
	DeltaN float64
	M0     float64
	Cuc    float64
	Ecc    float64
	Cus    float64
	SqrtA  float64
	Cic    float64
	Omega0 float64
	Cis    float64
	I0     float64
	Crc    float64
	Omega  float64
	OmegaD float64
	Idot   float64
	Code   int
	Week   int
	Flag   int
	Sva    int
	Svh    int
	Tgd    float64 // GPS, QZS, GAL(E5a/E1), BDS(B1/B3)
	Tgd2   float64 // GAL(E5b/E1), BDS(B2/B3)
	Fit    float64 // GPS, QZS
}

func (e *Eph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Eph for %s (%c, %d)\n", e.Sat, e.Sat.Sys(), e.Sat.Prn())
	fmt.Fprintf(&sb, "    Toc: %v\n", e.Toc)
	fmt.Fprintf(&sb, "    Toe: %v\n", e.Toe)
	fmt.Fprintf(&sb, "    Tot: %v\n", e.Tot)
	fmt.Fprintf(&sb, "   Iode: %v\n", e.Iode)
	fmt.Fprintf(&sb, "   Iodc: %v\n", e.Iodc)
	fmt.Fprintf(&sb, "    Af0: %v\n", e.Af0)
	fmt.Fprintf(&sb, "    Af1: %v\n", e.Af1)
	fmt.Fprintf(&sb, "    Af2: %v\n", e.Af2)
	fmt.Fprintf(&sb, "  SqrtA: %v\n", e.SqrtA)
	fmt.Fprintf(&sb, "    Ecc: %v\n", e.Ecc)
	fmt.Fprintf(&sb, "     M0: %v\n", e.M0)
	fmt.Fprintf(&sb, "   Week: %v\n", e.Week)
	fmt.Fprintf(&sb, "    Sva: %v\n", e.Sva)
	fmt.Fprintf(&sb, "    Svh: %v\n", e.Svh)
	fmt.Fprintf(&sb, "    Tgd: %v %v\n", e.Tgd, e.Tgd2)
	return sb.String()
}

// Geph is the ephemeris of GLONASS
type Geph struct {
	Sat    Sat
	Iode   int
	Frq    int   // Frequency channel number
	Svh    int
	Sva    int
	Age    int
	Toe    GTime // Epoch of ephemeris (GPST)
	Tof    GTime // Message frame time (GPST)
	TauN   float64
	GammaN float64
	DTaun  float64
	Pos    [3]float64 // Satellite position (ECEF) [m]
	Vel    [3]float64 // Satellite velocity [m/s]
	Acc    [3]float64 // Satellite acceleration [m/s^2]
}

// Seph is the ephemeris of SBAS
type Seph struct {
	Sat Sat
	T0  GTime // Reference epoch time (GPST)
	Tof GTime // Time of message frame (GPST)
	Sva int
	Svh int
	Af0 float64
	Af1 float64
	Pos [3]float64
	Vel [3]float64
	Acc [3]float64
}

// NavStore owns the ephemeris records of all systems and the carrier wave length table
// - Records are appended by Add*, then made sorted and unique by Normalize
// - Not safe for concurrent mutation
type NavStore struct {
	storeState
	eph  arena[Eph]
	geph arena[Geph]
	seph arena[Seph]
	lam  [MAXSAT][NFREQ]float64
}

// NewNavStore creates an empty navigation store (opt may be nil)
func NewNavStore(opt *StoreOpt) *NavStore {
	o := opt.withDefaults()
	p := &NavStore{storeState: storeState{opt: o}}
	p.eph.limit = o.MaxRecords
	p.geph.limit = o.MaxRecords
	p.seph.limit = o.MaxRecords
	p.updateWavelengths()
	return p
}

// AddEph appends an ephemeris and returns its index (valid until the next Normalize)
func (p *NavStore) AddEph(e Eph) (int, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if e.Sat <= 0 || MAXSAT < e.Sat {
		return -1, errors.Errorf("invalid satellite number %d", e.Sat)
	}
	i, err := p.eph.push(e)
	if err != nil {
		return -1, p.fail(KindEph, err)
	}
	p.opt.Metrics.inserted(KindEph, 1)
	return i, nil
}

// AddGeph appends a GLONASS ephemeris and returns its index
func (p *NavStore) AddGeph(g Geph) (int, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if g.Sat.Sys() != SysGLO {
		return -1, errors.Errorf("not a GLONASS satellite %d", g.Sat)
	}
	i, err := p.geph.push(g)
	if err != nil {
		return -1, p.fail(KindGeph, err)
	}
	for j := 0; j < NFREQ; j++ {
		p.lam[g.Sat-1][j] = p.satWavelen(g.Sat, j)
	}
	p.opt.Metrics.inserted(KindGeph, 1)
	return i, nil
}

// AddSeph appends a SBAS ephemeris and returns its index
func (p *NavStore) AddSeph(s Seph) (int, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if s.Sat.Sys() != SysSBS {
		return -1, errors.Errorf("not a SBAS satellite %d", s.Sat)
	}
	i, err := p.seph.push(s)
	if err != nil {
		return -1, p.fail(KindSeph, err)
	}
	p.opt.Metrics.inserted(KindSeph, 1)
	return i, nil
}

func cmpEph(a, b Eph) int {
	if a.Tot.Time != b.Tot.Time {
		return cmpInt64(a.Tot.Time, b.Tot.Time)
	}
	if a.Toe.Time != b.Toe.Time {
		return cmpInt64(a.Toe.Time, b.Toe.Time)
	}
	return int(a.Sat) - int(b.Sat)
}

func cmpGeph(a, b Geph) int {
	if a.Tof.Time != b.Tof.Time {
		return cmpInt64(a.Tof.Time, b.Tof.Time)
	}
	if a.Toe.Time != b.Toe.Time {
		return cmpInt64(a.Toe.Time, b.Toe.Time)
	}
	return int(a.Sat) - int(b.Sat)
}

func cmpSeph(a, b Seph) int {
	if a.Tof.Time != b.Tof.Time {
		return cmpInt64(a.Tof.Time, b.Tof.Time)
	}
	if a.T0.Time != b.T0.Time {
		return cmpInt64(a.T0.Time, b.T0.Time)
	}
	return int(a.Sat) - int(b.Sat)
}

// Normalize sorts, deduplicates and compacts every record kind, then updates the wave lengths
// - Eph: sorted by (Tot, Toe, sat), unique by (sat, Iode)
// - Geph: sorted by (Tof, Toe, sat), unique by (sat, Toe, Svh)
// - Seph: sorted by (Tof, T0, sat), unique by (sat, T0)
// - Of adjacent duplicates the later one in sort order is kept
func (p *NavStore) Normalize() error {
	if err := p.check(); err != nil {
		return err
	}
	log := p.opt.Log
	log.WithFields(logrus.Fields{"neph": p.eph.len(), "ngeph": p.geph.len(), "nseph": p.seph.len()}).Debug("normalize nav")

	st := time.Now()
	d := normalize(&p.eph, cmpEph, func(a, b Eph) bool {
		return a.Sat == b.Sat && a.Iode == b.Iode
	})
	p.opt.Metrics.normalized(KindEph, d, p.eph.len(), st)

	st = time.Now()
	dg := normalize(&p.geph, cmpGeph, func(a, b Geph) bool {
		return a.Sat == b.Sat && a.Toe.Time == b.Toe.Time && a.Svh == b.Svh
	})
	p.opt.Metrics.normalized(KindGeph, dg, p.geph.len(), st)

	st = time.Now()
	ds := normalize(&p.seph, cmpSeph, func(a, b Seph) bool {
		return a.Sat == b.Sat && a.T0.Time == b.T0.Time
	})
	p.opt.Metrics.normalized(KindSeph, ds, p.seph.len(), st)

	p.updateWavelengths()

	log.WithFields(logrus.Fields{
		"neph": p.eph.len(), "ngeph": p.geph.len(), "nseph": p.seph.len(),
		"dropped": d + dg + ds,
	}).Debug("normalized nav")
	return nil
}

func (p *NavStore) updateWavelengths() {
	for i := 0; i < MAXSAT; i++ {
		for j := 0; j < NFREQ; j++ {
			p.lam[i][j] = p.satWavelen(Sat(i+1), j)
		}
	}
}

// Carrier wave length of satellite and frequency index [m] (0: unknown)
func (p *NavStore) satWavelen(sat Sat, frq int) float64 {
	switch sat.Sys() {
	case SysGLO:
		if 0 <= frq && frq <= 1 {
			f0 := [2]float64{G1, G2}
			df := [2]float64{G1d, G2d}
			for _, g := range p.geph.items() {
				if g.Sat != sat {
					continue
				}
				return C / (f0[frq] + df[frq]*float64(g.Frq))
			}
		} else if frq == 2 {
			return C / G3
		}
	case SysCMP:
		switch frq {
		case 0:
			return C / B1
		case 1:
			return C / B2
		case 2:
			return C / B3
		}
	case SysNone:
		return 0.0
	default:
		switch frq {
		case 0:
			return C / FREQ1
		case 1:
			return C / FREQ2
		case 2:
			return C / FREQ5
		case 3:
			return C / FREQ6
		case 4:
			return C / FREQ7
		case 5:
			return C / FREQ8
		case 6:
			return C / FREQ9
		}
	}
	return 0.0
}

// Wavelength returns the carrier wave length [m] (0: unknown)
// - GLONASS wave lengths are known once an ephemeris of the satellite is added
func (p *NavStore) Wavelength(sat Sat, frq int) float64 {
	if sat <= 0 || MAXSAT < sat || frq < 0 || NFREQ <= frq {
		return 0.0
	}
	return p.lam[sat-1][frq]
}

// Number of records of each kind
func (p *NavStore) NumEph() int  { return p.eph.len() }
func (p *NavStore) NumGeph() int { return p.geph.len() }
func (p *NavStore) NumSeph() int { return p.seph.len() }

// Eph returns a copy of the i-th ephemeris
func (p *NavStore) Eph(i int) (Eph, bool) { return p.eph.at(i) }

// Geph returns a copy of the i-th GLONASS ephemeris
func (p *NavStore) Geph(i int) (Geph, bool) { return p.geph.at(i) }

// Seph returns a copy of the i-th SBAS ephemeris
func (p *NavStore) Seph(i int) (Seph, bool) { return p.seph.at(i) }

// SelectEph returns the ephemeris of sat whose Toe is nearest to t (GPST)
// - Ephemerides older or newer than the maximum age of the system are not selected
// - For Galileo an ephemeris with a future Toe is not selected
func (p *NavStore) SelectEph(sat Sat, t GTime) (Eph, error) {
	var tmax float64
	switch sat.Sys() {
	case SysGAL:
		tmax = MaxDtoeGAL
	case SysCMP:
		tmax = MaxDtoeCMP
	default:
		tmax = MaxDtoe
	}
	tmin := tmax + 1.0
	j := -1
	for i, e := range p.eph.items() {
		if e.Sat != sat {
			continue
		}
		dt := e.Toe.Diff(t)
		if sat.Sys() == SysGAL && dt >= 0 {
			continue
		}
		if d := math.Abs(dt); d <= tmax && d <= tmin {
			j, tmin = i, d
		}
	}
	if j < 0 {
		return Eph{}, errors.Errorf("can't find a valid ephemeris for %s at %s", sat, t)
	}
	return p.eph.buf[j], nil
}

// SelectGeph returns the GLONASS ephemeris of sat whose Toe is nearest to t (GPST)
func (p *NavStore) SelectGeph(sat Sat, t GTime) (Geph, error) {
	tmin := MaxDtoeGLO + 1.0
	j := -1
	for i, g := range p.geph.items() {
		if g.Sat != sat {
			continue
		}
		if d := math.Abs(g.Toe.Diff(t)); d <= MaxDtoeGLO && d <= tmin {
			j, tmin = i, d
		}
	}
	if j < 0 {
		return Geph{}, errors.Errorf("can't find a valid glonass ephemeris for %s at %s", sat, t)
	}
	return p.geph.buf[j], nil
}

// SelectSeph returns the SBAS ephemeris of sat whose T0 is nearest to t (GPST)
func (p *NavStore) SelectSeph(sat Sat, t GTime) (Seph, error) {
	tmin := MaxDtoeSBS + 1.0
	j := -1
	for i, s := range p.seph.items() {
		if s.Sat != sat {
			continue
		}
		if d := math.Abs(s.T0.Diff(t)); d <= MaxDtoeSBS && d <= tmin {
			j, tmin = i, d
		}
	}
	if j < 0 {
		return Seph{}, errors.Errorf("can't find a valid sbas ephemeris for %s at %s", sat, t)
	}
	return p.seph.buf[j], nil
}

// Display navigation data overview
func (p *NavStore) String() string {
	type span struct {
		st, et GTime
		n      int
	}
	spans := map[Sat]*span{}
	add := func(sat Sat, t GTime) {
		if s, ok := spans[sat]; ok {
			if t.Diff(s.st) < 0 {
				s.st = t
			}
			if t.Diff(s.et) > 0 {
				s.et = t
			}
			s.n++
		} else {
			spans[sat] = &span{t, t, 1}
		}
	}
	for _, e := range p.eph.items() {
		add(e.Sat, e.Toe)
	}
	for _, g := range p.geph.items() {
		add(g.Sat, g.Toe)
	}
	for _, s := range p.seph.items() {
		add(s.Sat, s.T0)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "eph=%d geph=%d seph=%d\n", p.eph.len(), p.geph.len(), p.seph.len())
	sb.WriteString("toe:\n")
	for sat := Sat(1); sat <= MAXSAT; sat++ {
		if s, ok := spans[sat]; ok {
			fmt.Fprintf(&sb, "\t%s: %s - %s (%d)\n", sat, s.st.Str(0), s.et.Str(0), s.n)
		}
	}
	return sb.String()
}

// Trace emits every record at trace level
func (p *NavStore) Trace() {
	log := p.opt.Log
	for i, e := range p.eph.items() {
		log.WithFields(logrus.Fields{
			"i": i, "sat": e.Sat.String(), "iode": e.Iode, "iodc": e.Iodc, "sva": e.Sva, "svh": e.Svh,
			"toe": e.Toe.Str(0), "toc": e.Toc.Str(0), "tot": e.Tot.Str(0),
		}).Trace("eph")
	}
	for i, g := range p.geph.items() {
		log.WithFields(logrus.Fields{
			"i": i, "sat": g.Sat.String(), "iode": g.Iode, "frq": g.Frq, "svh": g.Svh,
			"toe": g.Toe.Str(0), "tof": g.Tof.Str(0),
		}).Trace("geph")
	}
	for i, s := range p.seph.items() {
		log.WithFields(logrus.Fields{
			"i": i, "sat": s.Sat.String(), "sva": s.Sva, "svh": s.Svh,
			"t0": s.T0.Str(0), "tof": s.Tof.Str(0),
		}).Trace("seph")
	}
}
