// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	m "github.com/mkhts/gnsscore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Structure to hold command line argument and config file information
type cmdOpt struct {
	obsFn      string
	navFn      string
	baseObsFn  string
	outFn      string
	traceLevel int
	leapsFn    string
	maxRecords int
	obsTol     float64
	smoothWin  int
	ts, te     m.GTime
	ti         float64
	sys        m.SysVar
	exSats     m.SatVar
	metricsFn  string
}

// Config keys and the flags overriding them
var flagKeys = map[string]string{
	"x":       "trace.level",
	"leaps":   "leaps.file",
	"max":     "store.max_records",
	"tol":     "store.obs_tolerance",
	"sm":      "smooth.window",
	"ts":      "screen.start",
	"te":      "screen.end",
	"ti":      "screen.interval",
	"metrics": "metrics.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trace.level", 0)
	v.SetDefault("leaps.file", "")
	v.SetDefault("store.max_records", 0)
	v.SetDefault("store.obs_tolerance", m.DTTOL)
	v.SetDefault("smooth.window", 0)
	v.SetDefault("screen.start", "")
	v.SetDefault("screen.end", "")
	v.SetDefault("screen.interval", 0.0)
	v.SetDefault("metrics.file", "")
}

// Parse command line arguments
// - Values are taken from flags, then environment (GNSSCORE_*), then the config file (-c), then defaults
func parseArgs(fs *flag.FlagSet, args []string) (a cmdOpt, err error) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `
[Usage]
	%s [Options] rover.obs nav_file.nav [base.obs]

[Options]
`, filepath.Base(fs.Name()))
		fs.PrintDefaults()
	}
	var cfgFn string
	fs.StringVar(&cfgFn, "c", "", "Config file (yaml, toml or json). Flags take precedence over the file.")
	fs.Var(&a.sys, "sys", "Satellite systems to count. G(GPS), R(Glonass), E(Galileo), J(QZSS), C(Beidou), I(NavIC), S(SBAS). Comma-separated without spaces. Default: all")
	fs.Var(&a.exSats, "ex", "List of satellites to exclude. Comma-separated satellite names without spaces like C02,E14.")
	fs.StringVar(&a.outFn, "o", "", "Output file path. If not specified, output to stdout.")
	fs.Int("x", 0, "Debug information display. Specify level value. 0(OFF), 1(info), 2(debug), 3(trace)")
	fs.String("leaps", "", "Leap seconds table file (text or USNO leapsec.dat)")
	fs.Int("max", 0, "Maximum number of records of each kind in a store. 0 for no limit.")
	fs.Float64("tol", m.DTTOL, "Time tolerance of one observation epoch [s]")
	fs.Int("sm", 0, "Window of the carrier smoothing of pseudoranges [epochs]. 0 or 1 for no smoothing.")
	fs.String("ts", "", "Start epoch specification (GPST). Enclose in quotes like -ts \"2023/01/01 00:00:00\"")
	fs.String("te", "", "End epoch specification (GPST). Enclose in quotes like -te \"2023/01/02 00:00:00\". This epoch is included.")
	fs.Float64("ti", 0, "Time interval [s]. Omit or set to 0 to use all epochs.")
	fs.String("metrics", "", "Write store metrics in the Prometheus text format to this file")
	if err = fs.Parse(args); err != nil {
		return a, err
	}
	switch fs.NArg() {
	case 2:
		a.obsFn, a.navFn = fs.Arg(0), fs.Arg(1)
	case 3:
		a.obsFn, a.navFn, a.baseObsFn = fs.Arg(0), fs.Arg(1), fs.Arg(2)
	default:
		return a, errors.New("too less or many arguments")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GNSSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if cfgFn != "" {
		v.SetConfigFile(cfgFn)
		if err = v.ReadInConfig(); err != nil {
			return a, errors.Wrapf(err, "read config file %s", cfgFn)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
	return a, applyConfig(v, &a)
}

// Copy config values to the option structure
func applyConfig(v *viper.Viper, a *cmdOpt) error {
	a.traceLevel = v.GetInt("trace.level")
	a.leapsFn = v.GetString("leaps.file")
	a.maxRecords = v.GetInt("store.max_records")
	a.obsTol = v.GetFloat64("store.obs_tolerance")
	a.smoothWin = v.GetInt("smooth.window")
	a.ti = v.GetFloat64("screen.interval")
	a.metricsFn = v.GetString("metrics.file")
	if a.maxRecords < 0 {
		return errors.Errorf("invalid store.max_records %d", a.maxRecords)
	}
	if a.obsTol <= 0 {
		return errors.Errorf("invalid store.obs_tolerance %g", a.obsTol)
	}
	for _, e := range []struct {
		key string
		t   *m.GTime
	}{{"screen.start", &a.ts}, {"screen.end", &a.te}} {
		s := v.GetString(e.key)
		if s == "" {
			continue
		}
		var ts m.TimeStr
		if err := ts.UnmarshalText([]byte(s)); err != nil {
			return errors.Wrap(err, e.key)
		}
		*e.t = ts.GTime()
	}
	return nil
}

// Map the debug level to a logrus level
func logLevel(x int) logrus.Level {
	switch {
	case x <= 0:
		return logrus.WarnLevel
	case x == 1:
		return logrus.InfoLevel
	case x == 2:
		return logrus.DebugLevel
	}
	return logrus.TraceLevel
}
