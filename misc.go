// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Debug print function
// ------------------------------------

// TraceMat emits an n x m column-major matrix at debug level
func TraceMat(log logrus.FieldLogger, msg string, A []float64, n, m int) {
	if log == nil || n <= 0 || m <= 0 || len(A) < n*m {
		return
	}
	fa := mat.Formatted(colMajor(A, n, m), mat.Prefix(""), mat.Squeeze())
	log.WithFields(logrus.Fields{"rows": n, "cols": m}).Debugf("%s\n%v", msg, fa)
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// List of satellite systems like "G,E,J"
type SysVar []SysType

func (p *SysVar) Set(s string) error {
	*p = SysVar{}
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		sys := SysType(a[0])
		if !sys.IsValid() {
			return errors.Errorf("unknown satellite system %q", a)
		}
		*p = append(*p, sys)
	}
	return nil
}

func (p *SysVar) String() string {
	if p == nil {
		return ""
	}
	a := make([]string, len(*p))
	for i, s := range *p {
		a[i] = string(s)
	}
	return strings.Join(a, ",")
}

// Contains reports whether s is in the list (an empty list contains every system)
func (p *SysVar) Contains(s SysType) bool {
	if p == nil || len(*p) == 0 {
		return true
	}
	for _, v := range *p {
		if s == v {
			return true
		}
	}
	return false
}

// List of satellites like "G01,R05"
type SatVar []Sat

func (p *SatVar) Set(s string) error {
	*p = SatVar{}
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		sat := SatID(a)
		if sat == 0 {
			return errors.Errorf("invalid satellite %q", a)
		}
		*p = append(*p, sat)
	}
	return nil
}

func (p *SatVar) String() string {
	if p == nil {
		return ""
	}
	a := make([]string, len(*p))
	for i, s := range *p {
		a[i] = s.String()
	}
	return strings.Join(a, ",")
}

func (p *SatVar) Contains(s Sat) bool {
	if p == nil {
		return false
	}
	for _, v := range *p {
		if s == v {
			return true
		}
	}
	return false
}

// Date and time parser (for command arguments) "yyyy/mm/dd hh:mm:ss"
type TimeStr GTime

func (p *TimeStr) MarshalText() (text []byte, err error) {
	if GTime(*p).IsZero() {
		return []byte{}, nil
	}
	return []byte(GTime(*p).Str(0)), nil
}

func (p *TimeStr) UnmarshalText(text []byte) error {
	s := strings.NewReplacer("/", " ", ":", " ", "-", " ", "T", " ").Replace(string(text))
	t, err := StrToTime(s, 0, len(s))
	if err != nil {
		return errors.Wrapf(err, "invalid time %q", string(text))
	}
	if t.IsZero() {
		return errors.Errorf("time out of range %q", string(text))
	}
	*p = TimeStr(t)
	return nil
}

// GTime returns the parsed value
func (p *TimeStr) GTime() GTime { return GTime(*p) }

func (p *TimeStr) String() string {
	b, _ := p.MarshalText()
	return string(b)
}

// FormatSats lists satellites like "G01 G02 R05"
func FormatSats(sats []Sat) string {
	var sb strings.Builder
	for i, s := range sats {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, s)
	}
	return sb.String()
}
