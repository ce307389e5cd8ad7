// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// StoreOpt contains options shared by NavStore and ObsStore
type StoreOpt struct {
	Log        logrus.FieldLogger // Logger (nil: logrus standard logger)
	Fatal      FatalFunc          // Called once when the store can not keep its invariants
	MaxRecords int                // Capacity limit per record kind (0: unlimited)
	Tolerance  float64            // Time tolerance of one observation epoch [s]
	Metrics    *StoreMetrics      // Collectors (nil: disabled)
}

// NewStoreOpt creates a new StoreOpt with default values
func NewStoreOpt() *StoreOpt {
	return &StoreOpt{
		Log:        logrus.StandardLogger(),
		Fatal:      nil,
		MaxRecords: 0,
		Tolerance:  DTTOL,
		Metrics:    nil,
	}
}

func (p *StoreOpt) withDefaults() StoreOpt {
	var o StoreOpt
	if p != nil {
		o = *p
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DTTOL
	}
	return o
}

// storeState is the failure bookkeeping embedded in every store
type storeState struct {
	opt    StoreOpt
	failed bool
}

// fail puts the store in the fatal state and returns the error to propagate
func (p *storeState) fail(kind string, err error) error {
	msg := errors.Wrapf(err, "%s store", kind).Error()
	if !p.failed {
		p.failed = true
		p.opt.Log.WithFields(logrus.Fields{"kind": kind}).Error(msg)
		if p.opt.Fatal != nil {
			p.opt.Fatal(msg)
		}
	}
	return errors.Wrap(ErrFatal, msg)
}

func (p *storeState) check() error {
	if p.failed {
		return ErrFatal
	}
	return nil
}

// normalize sorts the records stably by cmp, collapses adjacent records with the same key
// into the later one and compacts the arena. Returns the number of dropped records.
func normalize[T any](a *arena[T], cmp func(a, b T) int, same func(a, b T) bool) int {
	s := a.items()
	if len(s) == 0 {
		return 0
	}
	slices.SortStableFunc(s, cmp)
	j := 0
	for i := 1; i < len(s); i++ {
		if same(s[i], s[j]) {
			s[j] = s[i]
			continue
		}
		j++
		s[j] = s[i]
	}
	n := len(s)
	a.compact(j + 1)
	return n - (j + 1)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
