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
	"golang.org/x/exp/slices"
)

// Maximum time difference to the nearest epoch [s]
const MaxAgeNearest = 30.0

// ObsData is the observation data of one satellite at one epoch for one receiver
type ObsData struct {
	Time GTime           // Receiver sampling time (GPST)
	Sat  Sat             // Satellite number
	Rcv  int             // Receiver index (RcvRover, RcvBase)
	Pr   [NFREQ]float64  // Pseudorange [m]
	Cp   [NFREQ]float64  // Carrier phase [cycle]
	Dp   [NFREQ]float64  // Doppler frequency [Hz]
	Sn   [NFREQ]float64  // Signal strength [dBHz]
	LLI  [NFREQ]byte     // LLI (Loss-of-Lock Indicator) (0: OK, 1: cycle slip, 2: possible half-cycle slip, 3: other problems)
	Freq [NFREQ]float64  // Carrier frequency [Hz]
	Code [NFREQ]CodeType // Observation code (1C,2X,5I etc.)
}

// EpochRange is the index range [Start, End) of the records of one epoch
type EpochRange struct {
	Start int
	End   int
}

// ObsStore owns the observation records of the rover and the base receiver
// - Records are appended by Add, then made sorted and unique by Normalize
// - Not safe for concurrent mutation
type ObsStore struct {
	storeState
	data   arena[ObsData]
	epochs []EpochRange // valid after Normalize until the next Add

	Codes map[SysType][]CodeType // Observation codes found by the loaders
}

// NewObsStore creates an empty observation store (opt may be nil)
func NewObsStore(opt *StoreOpt) *ObsStore {
	o := opt.withDefaults()
	p := &ObsStore{
		storeState: storeState{opt: o},
		Codes:      map[SysType][]CodeType{},
	}
	p.data.limit = o.MaxRecords
	return p
}

// Add appends an observation record and returns its index (valid until the next Normalize)
func (p *ObsStore) Add(d ObsData) (int, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if d.Sat <= 0 || MAXSAT < d.Sat {
		return -1, errors.Errorf("invalid satellite number %d", d.Sat)
	}
	if d.Rcv < RcvRover || RcvBase < d.Rcv {
		return -1, errors.Errorf("invalid receiver index %d", d.Rcv)
	}
	i, err := p.data.push(d)
	if err != nil {
		return -1, p.fail(KindObs, err)
	}
	p.epochs = nil
	p.opt.Metrics.inserted(KindObs, 1)
	return i, nil
}

// Len returns the number of records
func (p *ObsStore) Len() int { return p.data.len() }

// At returns a copy of the i-th record
func (p *ObsStore) At(i int) (ObsData, bool) { return p.data.at(i) }

// Normalize sorts the records by time and groups them into epochs of records within
// the tolerance of the first one. Inside an epoch records are ordered by (receiver, satellite)
// and records with the same satellite and receiver collapse into the later one.
// The store is compacted and the number of epochs is returned.
func (p *ObsStore) Normalize() (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	tol := p.opt.Tolerance
	st := time.Now()
	s := p.data.items()
	n0 := len(s)
	slices.SortStableFunc(s, func(a, b ObsData) int {
		if a.Time.Time != b.Time.Time {
			return cmpInt64(a.Time.Time, b.Time.Time)
		}
		switch {
		case a.Time.Sec < b.Time.Sec:
			return -1
		case a.Time.Sec > b.Time.Sec:
			return 1
		}
		return 0
	})

	p.epochs = p.epochs[:0]
	k := 0
	for i, j := 0, 0; i < len(s); i = j {
		for j = i + 1; j < len(s); j++ {
			if s[j].Time.Diff(s[i].Time) > tol {
				break
			}
		}
		g := s[i:j]
		slices.SortStableFunc(g, func(a, b ObsData) int {
			if a.Rcv != b.Rcv {
				return a.Rcv - b.Rcv
			}
			return int(a.Sat) - int(b.Sat)
		})
		// k <= i+m, so s[k] is never a record not read yet
		k0 := k
		for m := range g {
			if k > k0 && s[k-1].Sat == g[m].Sat && s[k-1].Rcv == g[m].Rcv {
				s[k-1] = g[m]
				continue
			}
			s[k] = g[m]
			k++
		}
		p.epochs = append(p.epochs, EpochRange{k0, k})
	}
	p.data.compact(k)
	d := n0 - k
	p.opt.Metrics.normalized(KindObs, d, p.data.len(), st)
	p.opt.Log.WithFields(logrus.Fields{"nobs": n0, "dropped": d, "nepoch": len(p.epochs)}).Debug("normalized obs")
	return len(p.epochs), nil
}

// Epochs returns the record ranges of each epoch found by the last Normalize
func (p *ObsStore) Epochs() []EpochRange {
	return slices.Clone(p.epochs)
}

// Epoch returns a copy of the records of the i-th epoch
func (p *ObsStore) Epoch(i int) ([]ObsData, error) {
	if i < 0 || len(p.epochs) <= i {
		return nil, errors.Errorf("epoch index out of range (i=%d, n=%d)", i, len(p.epochs))
	}
	r := p.epochs[i]
	return slices.Clone(p.data.items()[r.Start:r.End]), nil
}

// Nearest returns the records of receiver rcv (0: any) in the epoch closest to t
// - Fails if no epoch is found within MaxAgeNearest seconds
func (p *ObsStore) Nearest(t GTime, rcv int) ([]ObsData, error) {
	if len(p.epochs) == 0 {
		return nil, errors.New("the container is empty")
	}
	s := p.data.items()
	m := MaxAgeNearest + 1
	k := -1
	for i, r := range p.epochs {
		ok := rcv == 0
		for j := r.Start; !ok && j < r.End; j++ {
			ok = s[j].Rcv == rcv
		}
		if !ok {
			continue
		}
		if d := math.Abs(t.Diff(s[r.Start].Time)); d <= m {
			k, m = i, d
		}
	}
	if k < 0 || m > MaxAgeNearest {
		return nil, errors.Errorf("no nearest data is found within %d seconds. t=%s", int(MaxAgeNearest), t)
	}
	r := p.epochs[k]
	out := make([]ObsData, 0, r.End-r.Start)
	for _, d := range s[r.Start:r.End] {
		if rcv == 0 || d.Rcv == rcv {
			out = append(out, d)
		}
	}
	return out, nil
}

// Smooth applies the Hatch filter to the pseudoranges with a window of ns epochs
// - Smoothing restarts on a loss of lock; pseudoranges of the first ns-1 samples are set to 0
// - Only the rover and the base receiver are smoothed
func (p *ObsStore) Smooth(ns int) error {
	if err := p.check(); err != nil {
		return err
	}
	if ns <= 1 {
		return nil
	}
	lam := [NFREQ]float64{C / FREQ1, C / FREQ2, C / FREQ5, C / FREQ6}
	var (
		ps [2][MAXSAT][NFREQ]float64
		lp [2][MAXSAT][NFREQ]float64
		n  [2][MAXSAT][NFREQ]int
	)
	fns := float64(ns)
	s := p.data.items()
	for i := range s {
		d := &s[i]
		if d.Sat <= 0 || MAXSAT < d.Sat || d.Rcv < RcvRover || RcvBase < d.Rcv {
			continue
		}
		r, k := d.Rcv-1, int(d.Sat)-1
		for j := 0; j < NFREQ; j++ {
			if d.Pr[j] == 0.0 || d.Cp[j] == 0.0 {
				continue
			}
			if d.LLI[j] != 0 {
				n[r][k][j] = 0
			}
			if n[r][k][j] == 0 {
				ps[r][k][j] = d.Pr[j]
			} else {
				dcp := lam[j] * (d.Cp[j] - lp[r][k][j])
				ps[r][k][j] = d.Pr[j]/fns + (ps[r][k][j]+dcp)*(fns-1)/fns
			}
			n[r][k][j]++
			if n[r][k][j] < ns {
				d.Pr[j] = 0.0
			} else {
				d.Pr[j] = ps[r][k][j]
			}
			lp[r][k][j] = d.Cp[j]
		}
	}
	p.opt.Log.WithFields(logrus.Fields{"nobs": len(s), "ns": ns}).Debug("smoothed obs")
	return nil
}

// Display observation data overview
func (p *ObsStore) String() string {
	if p.data.len() == 0 {
		return "NO DATA"
	}
	s := p.data.items()
	st, et := s[0].Time, s[0].Time
	sl := map[SysType][]Sat{}
	for _, d := range s {
		if d.Time.Diff(st) < 0 {
			st = d.Time
		}
		if d.Time.Diff(et) > 0 {
			et = d.Time
		}
		sys := d.Sat.Sys()
		if !slices.Contains(sl[sys], d.Sat) {
			sl[sys] = append(sl[sys], d.Sat)
		}
	}
	var sb, sb2 strings.Builder
	for _, o := range sysOrder {
		sys := o.sys
		if a := sl[sys]; len(a) > 0 {
			slices.Sort(a)
			fmt.Fprintf(&sb, "\t%c (%2d):", sys, len(a))
			for _, b := range a {
				fmt.Fprintf(&sb, " %s", b)
			}
			sb.WriteString("\n")
		}
		if a := p.Codes[sys]; len(a) > 0 {
			fmt.Fprintf(&sb2, "\t%c (%2d):", sys, len(a))
			for _, b := range a {
				fmt.Fprintf(&sb2, " %s", b)
			}
			sb2.WriteString("\n")
		}
	}
	a := `
datetime:
	%s - %s (%d records, %d epochs)

sats:
%s
codes:
%s`
	return fmt.Sprintf(a, st.Str(3), et.Str(3), len(s), len(p.epochs), sb.String(), sb2.String())
}

// Trace emits every record at trace level
func (p *ObsStore) Trace() {
	for i, d := range p.data.items() {
		p.opt.Log.WithFields(logrus.Fields{
			"i": i, "time": d.Time.Str(3), "sat": d.Sat.String(), "rcv": d.Rcv,
			"pr": d.Pr, "cp": d.Cp, "lli": d.LLI, "code": d.Code,
		}).Trace("obs")
	}
}
