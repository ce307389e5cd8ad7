// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSysVar(t *testing.T) {
	assert := assert.New(t)
	var v SysVar
	assert.True(v.Contains(SysGLO))
	require.NoError(t, v.Set("G, E,,J"))
	assert.Equal(SysVar{SysGPS, SysGAL, SysQZS}, v)
	assert.Equal("G,E,J", v.String())
	assert.True(v.Contains(SysGAL))
	assert.False(v.Contains(SysGLO))
	assert.Error(v.Set("G,X"))
	var p *SysVar
	assert.Equal("", p.String())
}

func TestSatVar(t *testing.T) {
	assert := assert.New(t)
	var v SatVar
	assert.False(v.Contains(SatNo(SysGPS, 1)))
	require.NoError(t, v.Set("G01, R05,137"))
	assert.Equal(SatVar{SatNo(SysGPS, 1), SatNo(SysGLO, 5), SatNo(SysSBS, 137)}, v)
	assert.Equal("G01,R05,137", v.String())
	assert.True(v.Contains(SatNo(SysGLO, 5)))
	assert.False(v.Contains(SatNo(SysGLO, 6)))
	assert.Equal("G01 R05 137", FormatSats([]Sat(v)))
	assert.Error(v.Set("G01,G99"))
	assert.Equal("", FormatSats(nil))
}

func TestTimeStr(t *testing.T) {
	assert := assert.New(t)
	want := Epoch2Time([6]float64{2021, 10, 5, 1, 2, 3})
	for _, s := range []string{"2021/10/05 01:02:03", "2021-10-05T01:02:03", "2021 10 5 1 2 3"} {
		var ts TimeStr
		require.NoError(t, ts.UnmarshalText([]byte(s)), s)
		assert.Equal(want, ts.GTime())
		assert.Equal("2021/10/05 01:02:03", ts.String())
	}
	var ts TimeStr
	assert.Equal("", ts.String())
	assert.Error(ts.UnmarshalText([]byte("2021/10/05")))
	assert.Error(ts.UnmarshalText([]byte("1960/01/01 00:00:00")))
	assert.True(ts.GTime().IsZero())
}

func TestTraceMat(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	TraceMat(log, "P", []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, logrus.DebugLevel, e.Level)
	assert.Equal(t, 2, e.Data["rows"])
	assert.Equal(t, 3, e.Data["cols"])
	assert.Contains(t, e.Message, "P\n")
	assert.Contains(t, e.Message, "1  3  5")

	hook.Reset()
	TraceMat(log, "short", []float64{1}, 2, 2)
	TraceMat(nil, "nil", []float64{1}, 1, 1)
	assert.Nil(t, hook.LastEntry())
}
