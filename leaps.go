// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/soniakeys/meeus/v3/julian"
)

// Maximum number of rows in a leap seconds table
const MAXLEAPS = 64

// Leap is one row of the leap seconds table
// - Epoch is the UTC start time {y, m, d, h, m, s} of the offset
// - UTCmGPST is UTC - GPST [s] (negative)
type Leap struct {
	Epoch    [6]float64
	UTCmGPST float64
}

// LeapTable maps UTC and GPST, rows are in descending order of time
// - Safe for concurrent use. Conversions take the read lock, loading takes the write lock.
type LeapTable struct {
	mu   sync.RWMutex
	rows []Leap
	log  logrus.FieldLogger
}

func defaultLeaps() []Leap {
	return []Leap{
		{[6]float64{2017, 1, 1, 0, 0, 0}, -18},
		{[6]float64{2015, 7, 1, 0, 0, 0}, -17},
		{[6]float64{2012, 7, 1, 0, 0, 0}, -16},
		{[6]float64{2009, 1, 1, 0, 0, 0}, -15},
		{[6]float64{2006, 1, 1, 0, 0, 0}, -14},
		{[6]float64{1999, 1, 1, 0, 0, 0}, -13},
		{[6]float64{1997, 7, 1, 0, 0, 0}, -12},
		{[6]float64{1996, 1, 1, 0, 0, 0}, -11},
		{[6]float64{1994, 7, 1, 0, 0, 0}, -10},
		{[6]float64{1993, 7, 1, 0, 0, 0}, -9},
		{[6]float64{1992, 7, 1, 0, 0, 0}, -8},
		{[6]float64{1991, 1, 1, 0, 0, 0}, -7},
		{[6]float64{1990, 1, 1, 0, 0, 0}, -6},
		{[6]float64{1988, 1, 1, 0, 0, 0}, -5},
		{[6]float64{1985, 7, 1, 0, 0, 0}, -4},
		{[6]float64{1983, 7, 1, 0, 0, 0}, -3},
		{[6]float64{1982, 7, 1, 0, 0, 0}, -2},
		{[6]float64{1981, 7, 1, 0, 0, 0}, -1},
	}
}

// NewLeapTable returns a table initialized with the compiled-in leap seconds
// - A nil logger uses the logrus standard logger
func NewLeapTable(log logrus.FieldLogger) *LeapTable {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LeapTable{rows: defaultLeaps(), log: log}
}

// Rows returns a copy of the current table
func (p *LeapTable) Rows() []Leap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Leap(nil), p.rows...)
}

// Set replaces the table wholesale. Rows must be in descending order of time.
func (p *LeapTable) Set(rows []Leap) {
	r := append([]Leap(nil), rows...)
	p.mu.Lock()
	p.rows = r
	p.mu.Unlock()
}

// GPSTToUTC converts GPST to UTC considering leap seconds
func (p *LeapTable) GPSTToUTC(t GTime) GTime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range p.rows {
		tu := t.Add(l.UTCmGPST)
		if tu.Diff(Epoch2Time(l.Epoch)) >= 0.0 {
			return tu
		}
	}
	return t
}

// UTCToGPST converts UTC to GPST considering leap seconds
func (p *LeapTable) UTCToGPST(t GTime) GTime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range p.rows {
		if t.Diff(Epoch2Time(l.Epoch)) >= 0.0 {
			return t.Add(-l.UTCmGPST)
		}
	}
	return t
}

// Load reads a leap seconds table in the text format or in the USNO leapsec.dat format
// - Text format: "year month day hour min sec UTC-GPST" in descending order, '#' starts a comment
// - If nothing could be read, ErrNoRecords is returned and the table is kept
func (p *LeapTable) Load(r io.Reader) (int, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, errors.Wrap(err, "read leap seconds table")
	}
	rows := readLeapsText(buf)
	format := "text"
	if len(rows) == 0 {
		rows = p.readLeapsUSNO(buf)
		format = "usno"
	}
	if len(rows) == 0 {
		return 0, errors.Wrap(ErrNoRecords, "leap seconds table")
	}
	p.Set(rows)
	p.log.WithFields(logrus.Fields{
		"format": format,
		"rows":   len(rows),
	}).Info("leap seconds table loaded")
	return len(rows), nil
}

// LoadFile reads a leap seconds table file
func (p *LeapTable) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open leap seconds table")
	}
	defer f.Close()
	return p.Load(f)
}

func readLeapsText(buf []byte) []Leap {
	rows := []Leap{}
	s := bufio.NewScanner(bytes.NewReader(buf))
	for s.Scan() && len(rows) < MAXLEAPS {
		line := s.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		var ep [6]int
		var ls int
		if n, _ := fmt.Sscanf(line, "%d %d %d %d %d %d %d", &ep[0], &ep[1], &ep[2], &ep[3], &ep[4], &ep[5], &ls); n < 7 {
			continue
		}
		var l Leap
		for i := range ep {
			l.Epoch[i] = float64(ep[i])
		}
		l.UTCmGPST = float64(ls)
		rows = append(rows, l)
	}
	return rows
}

func (p *LeapTable) readLeapsUSNO(buf []byte) []Leap {
	months := map[string]int{
		"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
		"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
	}
	asc := []Leap{}
	s := bufio.NewScanner(bytes.NewReader(buf))
	for s.Scan() && len(asc) < MAXLEAPS {
		var y, d int
		var month string
		var jd, taiUTC float64
		if n, _ := fmt.Sscanf(s.Text(), "%d %s %d =JD %f TAI-UTC= %f", &y, &month, &d, &jd, &taiUTC); n < 5 {
			continue
		}
		if y < 1980 {
			continue
		}
		m, ok := months[month]
		if !ok {
			continue
		}
		// The julian date must agree with the calendar date of the row
		if jy, jm, jday := julian.JDToCalendar(jd); jy != y || jm != m || int(math.Floor(jday)) != d {
			p.log.WithFields(logrus.Fields{
				"line": s.Text(),
			}).Warn("leap seconds row skipped, inconsistent julian date")
			continue
		}
		asc = append(asc, Leap{
			Epoch:    [6]float64{float64(y), float64(m), float64(d), 0, 0, 0},
			UTCmGPST: float64(int(19.0 - taiUTC)),
		})
	}
	// descending order
	rows := make([]Leap, len(asc))
	for i := range asc {
		rows[i] = asc[len(asc)-1-i]
	}
	return rows
}
