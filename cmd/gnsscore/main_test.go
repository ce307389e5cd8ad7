// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	m "github.com/mkhts/gnsscore"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessEpochs(t *testing.T) {
	assert := assert.New(t)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	opt := &m.StoreOpt{Log: log}
	t0 := m.GPSTToTime(2178, 172800)

	nav := m.NewNavStore(opt)
	g1, g2, r1 := m.SatNo(m.SysGPS, 1), m.SatNo(m.SysGPS, 2), m.SatNo(m.SysGLO, 1)
	_, err := nav.AddEph(m.Eph{Sat: g1, Toe: t0, Toc: t0, Tot: t0})
	require.NoError(t, err)
	_, err = nav.AddGeph(m.Geph{Sat: r1, Toe: t0, Tof: t0})
	require.NoError(t, err)
	require.NoError(t, nav.Normalize())

	obs := m.NewObsStore(opt)
	for k := 0; k < 4; k++ {
		tt := t0.Add(float64(k) * 15)
		for _, d := range []m.ObsData{
			{Time: tt, Sat: g1, Rcv: m.RcvRover},
			{Time: tt, Sat: g2, Rcv: m.RcvRover},
			{Time: tt, Sat: r1, Rcv: m.RcvRover},
			{Time: tt, Sat: g1, Rcv: m.RcvBase},
		} {
			_, err := obs.Add(d)
			require.NoError(t, err)
		}
	}
	_, err = obs.Normalize()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, processEpochs(cmdOpt{}, obs, nav, &buf, log))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t0.Str(3)+"     3     1      2", lines[1])
	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal("epoch", e.Message)
	assert.Equal("G01 R01", e.Data["sats"])

	// screening and satellite selection
	args := cmdOpt{ti: 30, te: t0.Add(30)}
	require.NoError(t, args.sys.Set("G"))
	require.NoError(t, args.exSats.Set("G02"))
	buf.Reset()
	require.NoError(t, processEpochs(args, obs, nav, &buf, log))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t0.Add(30).Str(3)+"     1     1      1", lines[2])
}

func TestRunApplicationMissingInput(t *testing.T) {
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	args := cmdOpt{
		obsFn:  filepath.Join(dir, "rov.obs"),
		navFn:  filepath.Join(dir, "brdc.nav"),
		obsTol: m.DTTOL,
	}
	assert.Error(t, runApplication(args, log))

	require.NoError(t, os.WriteFile(args.navFn, []byte("not a rinex file\n"), 0o644))
	assert.Error(t, runApplication(args, log))

	args.leapsFn = filepath.Join(dir, "leaps.txt")
	assert.Error(t, runApplication(args, log))
}
