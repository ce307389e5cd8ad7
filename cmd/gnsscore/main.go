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
	"io"
	"os"

	m "github.com/mkhts/gnsscore"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {

	// Parse command line arguments
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	args, err := parseArgs(fs, os.Args[1:])
	if err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "err=%s\n", err)
			fs.Usage()
		}
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logLevel(args.traceLevel))

	// Run the main application
	if err := runApplication(args, log); err != nil {
		log.WithError(err).Error("gnsscore failed")
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt, log *logrus.Logger) error {

	reg := prometheus.NewRegistry()
	opt := m.NewStoreOpt()
	opt.Log = log
	opt.MaxRecords = args.maxRecords
	opt.Tolerance = args.obsTol
	opt.Metrics = m.NewStoreMetrics(reg)
	opt.Fatal = func(msg string) {
		log.WithField("fatal", true).Error(msg)
	}

	// Load input files
	nav, obs, err := loadInputFiles(args, opt, log)
	if err != nil {
		return errors.Wrap(err, "failed to load input files")
	}

	// Prepare output file
	out, err := prepareOutput(args)
	if err != nil {
		return errors.Wrap(err, "failed to prepare output")
	}
	defer out.Close()

	if err := processEpochs(args, obs, nav, out, log); err != nil {
		return err
	}

	if args.metricsFn != "" {
		if err := prometheus.WriteToTextfile(args.metricsFn, reg); err != nil {
			return errors.Wrap(err, "failed to write metrics")
		}
	}
	return nil
}

// Load input files into the stores and normalize them
func loadInputFiles(args cmdOpt, opt *m.StoreOpt, log *logrus.Logger) (*m.NavStore, *m.ObsStore, error) {

	leaps := m.NewLeapTable(log)
	if args.leapsFn != "" {
		if _, err := leaps.LoadFile(args.leapsFn); err != nil {
			return nil, nil, errors.Wrap(err, "failed to read leap seconds table")
		}
	}

	nav := m.NewNavStore(opt)
	if err := withFile(args.navFn, func(r io.Reader) error {
		_, err := m.ReadNav(r, nav, leaps, log)
		return err
	}); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read navigation file")
	}
	if err := nav.Normalize(); err != nil {
		return nil, nil, err
	}

	obs := m.NewObsStore(opt)
	if err := withFile(args.obsFn, func(r io.Reader) error {
		_, err := m.ReadObs(r, m.RcvRover, obs, log)
		return err
	}); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read observation file")
	}
	if args.baseObsFn != "" {
		if err := withFile(args.baseObsFn, func(r io.Reader) error {
			_, err := m.ReadObs(r, m.RcvBase, obs, log)
			return err
		}); err != nil {
			return nil, nil, errors.Wrap(err, "failed to read base observation file")
		}
	}
	nep, err := obs.Normalize()
	if err != nil {
		return nil, nil, err
	}
	if args.smoothWin > 1 {
		if err := obs.Smooth(args.smoothWin); err != nil {
			return nil, nil, err
		}
	}

	log.WithField("epochs", nep).Info("input files loaded")
	if log.IsLevelEnabled(logrus.InfoLevel) {
		fmt.Fprintf(os.Stderr, "--- obs data ---\n%s\n", obs)
	}
	if log.IsLevelEnabled(logrus.DebugLevel) {
		fmt.Fprintf(os.Stderr, "--- nav data ---\n%s\n", nav)
	}
	if log.IsLevelEnabled(logrus.TraceLevel) {
		nav.Trace()
		obs.Trace()
	}
	return nav, obs, nil
}

func withFile(fn string, f func(io.Reader) error) error {
	fp, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer fp.Close()
	return f(fp)
}

// Prepare output file
func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.outFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}
	return os.Create(args.outFn)
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// epochSummary is the result of one epoch
type epochSummary struct {
	time  m.GTime
	nrov  int // Rover satellites
	nbase int // Base satellites
	nval  int // Rover satellites with a valid ephemeris
	sats  []m.Sat
}

// Summarize each screened epoch
func processEpochs(args cmdOpt, obs *m.ObsStore, nav *m.NavStore, out io.Writer, log logrus.FieldLogger) error {
	fmt.Fprintf(out, "%%  GPST                     nrov nbase nvalid\n")
	for i := range obs.Epochs() {
		recs, err := obs.Epoch(i)
		if err != nil {
			return err
		}
		s := summarizeEpoch(args, recs, nav)
		if !m.Screen(s.time, args.ts, args.te, args.ti) {
			continue
		}
		fmt.Fprintf(out, "%s %5d %5d %6d\n", s.time.Str(3), s.nrov, s.nbase, s.nval)
		log.WithFields(logrus.Fields{"time": s.time.Str(3), "sats": m.FormatSats(s.sats)}).Debug("epoch")
	}
	return nil
}

func summarizeEpoch(args cmdOpt, recs []m.ObsData, nav *m.NavStore) epochSummary {
	var s epochSummary
	for i, d := range recs {
		if i == 0 {
			s.time = d.Time
		}
		if !args.sys.Contains(d.Sat.Sys()) || args.exSats.Contains(d.Sat) {
			continue
		}
		if d.Rcv == m.RcvBase {
			s.nbase++
			continue
		}
		s.nrov++
		if hasEphemeris(nav, d.Sat, d.Time) {
			s.nval++
			s.sats = append(s.sats, d.Sat)
		}
	}
	return s
}

// Check if a valid ephemeris of sat exists at t
func hasEphemeris(nav *m.NavStore, sat m.Sat, t m.GTime) bool {
	var err error
	switch sat.Sys() {
	case m.SysGLO:
		_, err = nav.SelectGeph(sat, t)
	case m.SysSBS:
		_, err = nav.SelectSeph(sat, t)
	default:
		_, err = nav.SelectEph(sat, t)
	}
	return err == nil
}
