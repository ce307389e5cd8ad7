// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaGrowth(t *testing.T) {
	assert := assert.New(t)
	var a arena[int]
	for i := 0; i < 65; i++ {
		k, err := a.push(i)
		require.NoError(t, err)
		assert.Equal(i, k)
	}
	assert.Equal(65, a.len())
	assert.Equal(128, a.cap())
	v, ok := a.at(64)
	assert.True(ok)
	assert.Equal(64, v)
	_, ok = a.at(65)
	assert.False(ok)
	_, ok = a.at(-1)
	assert.False(ok)

	a.compact(10)
	assert.Equal(10, a.len())
	assert.Equal(10, a.cap())
	assert.Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, a.items())
	a.reset()
	assert.Zero(a.len())
	assert.Empty(a.items())
}

func TestArenaLimit(t *testing.T) {
	a := arena[int]{limit: 100}
	for i := 0; i < 100; i++ {
		_, err := a.push(i)
		require.NoError(t, err)
	}
	assert.Equal(t, 100, a.cap())
	_, err := a.push(100)
	assert.Error(t, err)
	assert.Equal(t, 100, a.len())
}

func TestNormalizeKeepsLater(t *testing.T) {
	type rec struct{ k, v int }
	var a arena[rec]
	for _, r := range []rec{{3, 0}, {1, 1}, {3, 2}, {2, 3}, {1, 4}, {3, 5}} {
		_, err := a.push(r)
		require.NoError(t, err)
	}
	d := normalize(&a, func(x, y rec) int { return x.k - y.k }, func(x, y rec) bool { return x.k == y.k })
	assert.Equal(t, 3, d)
	assert.Equal(t, []rec{{1, 4}, {2, 3}, {3, 5}}, a.items())
	assert.Equal(t, 3, a.cap())

	var e arena[rec]
	assert.Zero(t, normalize(&e, func(x, y rec) int { return 0 }, func(x, y rec) bool { return true }))
}

func TestStoreMetrics(t *testing.T) {
	assert := assert.New(t)
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	obs := NewObsStore(&StoreOpt{Metrics: m})
	g1, g2 := SatNo(SysGPS, 1), SatNo(SysGPS, 2)
	for _, d := range []ObsData{
		testObs(g1, RcvRover, 0, 1),
		testObs(g2, RcvRover, 0, 1),
		testObs(g1, RcvRover, 0, 2),
	} {
		_, err := obs.Add(d)
		require.NoError(t, err)
	}
	assert.Equal(3.0, testutil.ToFloat64(m.Inserted.WithLabelValues(KindObs)))
	assert.Equal(3.0, testutil.ToFloat64(m.Records.WithLabelValues(KindObs)))
	_, err := obs.Normalize()
	require.NoError(t, err)
	assert.Equal(1.0, testutil.ToFloat64(m.Duplicates.WithLabelValues(KindObs)))
	assert.Equal(2.0, testutil.ToFloat64(m.Records.WithLabelValues(KindObs)))
	assert.Equal(1, testutil.CollectAndCount(m.Normalize))

	nav := NewNavStore(&StoreOpt{Metrics: m})
	_, err = nav.AddEph(Eph{Sat: g1})
	require.NoError(t, err)
	require.NoError(t, nav.Normalize())
	assert.Equal(1.0, testutil.ToFloat64(m.Records.WithLabelValues(KindEph)))
	assert.Equal(0.0, testutil.ToFloat64(m.Records.WithLabelValues(KindGeph)))
	assert.Equal(4, testutil.CollectAndCount(m.Normalize))

	n, err := testutil.GatherAndCount(reg, "gnsscore_store_inserted_records_total")
	require.NoError(t, err)
	assert.Equal(2, n)

	// unregistered and nil collectors
	assert.NotPanics(func() {
		NewStoreMetrics(nil).inserted(KindObs, 1)
		var p *StoreMetrics
		p.inserted(KindObs, 1)
	})
}
