// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var obsT0 = GPSTToTime(2200, 3600)

func testObs(sat Sat, rcv int, dt, pr float64) ObsData {
	d := ObsData{Time: obsT0.Add(dt), Sat: sat, Rcv: rcv}
	d.Pr[0] = pr
	return d
}

func TestObsNormalizeEpochs(t *testing.T) {
	assert := assert.New(t)
	obs := NewObsStore(nil)
	g1, g2, g3 := SatNo(SysGPS, 1), SatNo(SysGPS, 2), SatNo(SysGPS, 3)
	for _, d := range []ObsData{
		testObs(g1, RcvRover, 1, 10),
		testObs(g3, RcvBase, 0.002, 20),
		testObs(g2, RcvRover, 0, 30),
		testObs(g1, RcvRover, 0, 40),
		testObs(g1, RcvRover, 0, 41), // duplicate, replaces the previous one
	} {
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	assert.Equal(5, obs.Len())
	n, err := obs.Normalize()
	require.NoError(t, err)
	assert.Equal(2, n)
	assert.Equal(4, obs.Len())
	assert.Equal([]EpochRange{{0, 3}, {3, 4}}, obs.Epochs())

	ep, err := obs.Epoch(0)
	require.NoError(t, err)
	require.Len(t, ep, 3)
	assert.Equal(g1, ep[0].Sat)
	assert.Equal(41.0, ep[0].Pr[0])
	assert.Equal(g2, ep[1].Sat)
	assert.Equal(g3, ep[2].Sat)
	assert.Equal(RcvBase, ep[2].Rcv)

	// copies are returned
	ep[0].Pr[0] = 0
	d, ok := obs.At(0)
	require.True(t, ok)
	assert.Equal(41.0, d.Pr[0])
	_, ok = obs.At(4)
	assert.False(ok)

	_, err = obs.Epoch(2)
	assert.Error(err)
	_, err = obs.Epoch(-1)
	assert.Error(err)

	// idempotent
	n, err = obs.Normalize()
	require.NoError(t, err)
	assert.Equal(2, n)
	assert.Equal(4, obs.Len())

	// Add invalidates the epoch index
	_, err = obs.Add(testObs(g1, RcvRover, 2, 50))
	require.NoError(t, err)
	assert.Empty(obs.Epochs())
}

func TestObsTolerance(t *testing.T) {
	assert := assert.New(t)
	obs := NewObsStore(&StoreOpt{Tolerance: 0.1})
	g1, g2 := SatNo(SysGPS, 1), SatNo(SysGPS, 2)
	for _, d := range []ObsData{
		testObs(g1, RcvRover, 0, 1),
		testObs(g2, RcvRover, 0.02, 2),
		testObs(g1, RcvRover, 0.05, 3), // same epoch as the first one, replaces it
		testObs(g1, RcvBase, 0.08, 4),
		testObs(g1, RcvRover, 0.5, 5),
	} {
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	n, err := obs.Normalize()
	require.NoError(t, err)
	assert.Equal(2, n)
	assert.Equal(4, obs.Len())

	ep, err := obs.Epoch(0)
	require.NoError(t, err)
	require.Len(t, ep, 3)
	assert.Equal(g1, ep[0].Sat)
	assert.Equal(RcvRover, ep[0].Rcv)
	assert.Equal(3.0, ep[0].Pr[0])
	assert.Equal(g2, ep[1].Sat)
	assert.Equal(RcvBase, ep[2].Rcv)
	ep, err = obs.Epoch(1)
	require.NoError(t, err)
	require.Len(t, ep, 1)
	assert.Equal(5.0, ep[0].Pr[0])
}

func TestObsNormalizeTimeOrder(t *testing.T) {
	assert := assert.New(t)
	obs := NewObsStore(nil)
	g1, g2, g3 := SatNo(SysGPS, 1), SatNo(SysGPS, 2), SatNo(SysGPS, 3)
	// neighbours are within the tolerance, the earliest and the latest are not
	for _, d := range []ObsData{
		testObs(g1, RcvRover, 0.008, 1),
		testObs(g2, RcvRover, 0.004, 2),
		testObs(g3, RcvRover, 0, 3),
		testObs(g1, RcvRover, 0.001, 4),
	} {
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	n, err := obs.Normalize()
	require.NoError(t, err)
	assert.Equal(2, n)
	assert.Equal([]EpochRange{{0, 3}, {3, 4}}, obs.Epochs())

	ep, err := obs.Epoch(0)
	require.NoError(t, err)
	require.Len(t, ep, 3)
	for i, want := range []float64{4, 2, 3} {
		assert.Equal(want, ep[i].Pr[0])
	}
	ep, err = obs.Epoch(1)
	require.NoError(t, err)
	require.Len(t, ep, 1)
	assert.Equal(1.0, ep[0].Pr[0])

	// every record of an epoch is later than every record of the previous one
	rs := obs.Epochs()
	for k := 1; k < len(rs); k++ {
		for i := rs[k-1].Start; i < rs[k-1].End; i++ {
			a, _ := obs.At(i)
			for j := rs[k].Start; j < rs[k].End; j++ {
				b, _ := obs.At(j)
				assert.Greater(b.Time.Diff(a.Time), 0.0)
			}
		}
	}
}

func TestObsAddInvalid(t *testing.T) {
	obs := NewObsStore(nil)
	_, err := obs.Add(testObs(0, RcvRover, 0, 1))
	assert.Error(t, err)
	_, err = obs.Add(testObs(MAXSAT+1, RcvRover, 0, 1))
	assert.Error(t, err)
	_, err = obs.Add(testObs(SatNo(SysGPS, 1), 0, 0, 1))
	assert.Error(t, err)
	_, err = obs.Add(testObs(SatNo(SysGPS, 1), RcvBase+1, 0, 1))
	assert.Error(t, err)
	assert.Zero(t, obs.Len())
}

func TestObsNearest(t *testing.T) {
	assert := assert.New(t)
	obs := NewObsStore(nil)
	_, err := obs.Nearest(obsT0, 0)
	assert.Error(err)

	g1, g2 := SatNo(SysGPS, 1), SatNo(SysGPS, 2)
	for _, d := range []ObsData{
		testObs(g1, RcvRover, 0, 1),
		testObs(g2, RcvBase, 0, 2),
		testObs(g1, RcvRover, 1, 3),
		testObs(g1, RcvRover, 2, 4),
	} {
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	_, err = obs.Normalize()
	require.NoError(t, err)

	ds, err := obs.Nearest(obsT0.Add(10), 0)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(4.0, ds[0].Pr[0])

	ds, err = obs.Nearest(obsT0.Add(10), RcvBase)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(g2, ds[0].Sat)

	ds, err = obs.Nearest(obsT0, RcvRover)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(1.0, ds[0].Pr[0])

	_, err = obs.Nearest(obsT0.Add(2+MaxAgeNearest+1), 0)
	assert.Error(err)
	_, err = obs.Nearest(obsT0.Add(-MaxAgeNearest), 0)
	assert.NoError(err)
	_, err = obs.Nearest(obsT0, 3)
	assert.Error(err)
}

func TestObsSmooth(t *testing.T) {
	assert := assert.New(t)
	obs := NewObsStore(nil)
	g1 := SatNo(SysGPS, 1)
	lam := C / FREQ1
	noise := []float64{3, -3, 3, -3, 3}
	rho := func(k int) float64 { return 2e7 + 100*float64(k) }
	for k := range noise {
		d := testObs(g1, RcvRover, float64(k), rho(k)+noise[k])
		d.Cp[0] = rho(k) / lam
		if k == 4 {
			d.LLI[0] = 1
		}
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	_, err := obs.Normalize()
	require.NoError(t, err)

	require.NoError(t, obs.Smooth(1))
	d, _ := obs.At(0)
	assert.Equal(rho(0)+3, d.Pr[0])

	require.NoError(t, obs.Smooth(3))
	var pr []float64
	for i := 0; i < obs.Len(); i++ {
		d, _ := obs.At(i)
		pr = append(pr, d.Pr[0])
	}
	require.Len(t, pr, 5)
	assert.Zero(pr[0])
	assert.Zero(pr[1])
	assert.InDelta(rho(2)+5.0/3.0, pr[2], 1e-4)
	assert.InDelta(rho(3)+1.0/9.0, pr[3], 1e-4)
	// restarted by the loss of lock
	assert.Zero(pr[4])
}

func TestObsFatal(t *testing.T) {
	var calls int
	obs := NewObsStore(&StoreOpt{MaxRecords: 1, Fatal: func(string) { calls++ }})
	g1 := SatNo(SysGPS, 1)
	_, err := obs.Add(testObs(g1, RcvRover, 0, 1))
	require.NoError(t, err)
	_, err = obs.Add(testObs(g1, RcvRover, 1, 1))
	assert.True(t, errors.Is(err, ErrFatal))
	_, err = obs.Normalize()
	assert.True(t, errors.Is(err, ErrFatal))
	assert.True(t, errors.Is(obs.Smooth(5), ErrFatal))
	assert.Equal(t, 1, calls)
}

func TestObsString(t *testing.T) {
	obs := NewObsStore(nil)
	assert.Equal(t, "NO DATA", obs.String())
	_, err := obs.Add(testObs(SatNo(SysGAL, 11), RcvRover, 0, 1))
	require.NoError(t, err)
	_, err = obs.Add(testObs(SatNo(SysGPS, 1), RcvRover, 1, 1))
	require.NoError(t, err)
	obs.Codes[SysGPS] = []CodeType{"1C", "2W"}
	_, err = obs.Normalize()
	require.NoError(t, err)
	s := obs.String()
	assert.Contains(t, s, "(2 records, 2 epochs)")
	assert.Contains(t, s, "G ( 1): G01")
	assert.Contains(t, s, "E ( 1): E11")
	assert.Contains(t, s, "G ( 2): 1C 2W")
}
