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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
)

// GTime is a time expressed as integer seconds since 1970/1/1 00:00:00 and a fraction of second
// - Sec is always in [0, 1)
// - The time scale (GPST, UTC, GST, BDT) is given by the context, not by the value
type GTime struct {
	Time int64   // Integer seconds
	Sec  float64 // Fraction of second
}

var (
	gpst0 = [6]float64{1980, 1, 6, 0, 0, 0}  // GPS time reference
	gst0  = [6]float64{1999, 8, 22, 0, 0, 0} // Galileo system time reference
	bdt0  = [6]float64{2006, 1, 1, 0, 0, 0}  // Beidou time reference
)

const secPerWeek = 86400 * 7

// Epoch2Time converts a calendar day/time {year, month, day, hour, min, sec} to GTime
// - Valid in 1970-2099. Returns the zero time out of range.
func Epoch2Time(ep [6]float64) GTime {
	doy := [...]int{1, 32, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}
	year, mon, day := int(ep[0]), int(ep[1]), int(ep[2])
	if year < 1970 || 2099 < year || mon < 1 || 12 < mon {
		return GTime{}
	}
	// leap year if year%4==0 in 1901-2099
	days := (year-1970)*365 + (year-1969)/4 + doy[mon-1] + day - 2
	if year%4 == 0 && mon >= 3 {
		days++
	}
	sec := int(math.Floor(ep[5]))
	return GTime{
		Time: int64(days)*86400 + int64(ep[3])*3600 + int64(ep[4])*60 + int64(sec),
		Sec:  ep[5] - float64(sec),
	}
}

// Time2Epoch converts GTime to a calendar day/time {year, month, day, hour, min, sec}
func Time2Epoch(t GTime) [6]float64 {
	mday := [...]int{ // # of days in a month
		31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
		31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31,
	}
	days := int(t.Time / 86400)
	sec := int(t.Time - int64(days)*86400)
	day := days % 1461
	mon := 0
	for ; mon < 48; mon++ {
		if day >= mday[mon] {
			day -= mday[mon]
		} else {
			break
		}
	}
	return [6]float64{
		float64(1970 + days/1461*4 + mon/12),
		float64(mon%12 + 1),
		float64(day + 1),
		float64(sec / 3600),
		float64(sec % 3600 / 60),
		float64(sec%60) + t.Sec,
	}
}

func weekToTime(t0 [6]float64, week int, sec float64) GTime {
	t := Epoch2Time(t0)
	if sec < -1e9 || 1e9 < sec {
		sec = 0.0
	}
	t.Time += int64(secPerWeek)*int64(week) + int64(sec)
	t.Sec = sec - float64(int64(sec))
	return t.Add(0)
}

func timeToWeek(t0 [6]float64, t GTime) (int, float64) {
	sec := t.Time - Epoch2Time(t0).Time
	w := sec / secPerWeek
	if sec < 0 && sec%secPerWeek != 0 {
		w--
	}
	return int(w), float64(sec-w*secPerWeek) + t.Sec
}

// GPSTToTime converts a week and a time of week in GPST to GTime
func GPSTToTime(week int, sec float64) GTime { return weekToTime(gpst0, week, sec) }

// TimeToGPST converts GTime to a week and a time of week in GPST
func TimeToGPST(t GTime) (week int, tow float64) { return timeToWeek(gpst0, t) }

// GSTToTime converts a week and a time of week in Galileo system time to GTime
func GSTToTime(week int, sec float64) GTime { return weekToTime(gst0, week, sec) }

// TimeToGST converts GTime to a week and a time of week in Galileo system time
func TimeToGST(t GTime) (week int, tow float64) { return timeToWeek(gst0, t) }

// BDTToTime converts a week and a time of week in Beidou time to GTime
func BDTToTime(week int, sec float64) GTime { return weekToTime(bdt0, week, sec) }

// TimeToBDT converts GTime to a week and a time of week in Beidou time
func TimeToBDT(t GTime) (week int, tow float64) { return timeToWeek(bdt0, t) }

// GPSTToBDT converts GPST to BDT (no leap seconds in BDT)
func GPSTToBDT(t GTime) GTime { return t.Add(-14.0) }

// BDTToGPST converts BDT to GPST
func BDTToGPST(t GTime) GTime { return t.Add(14.0) }

// Add returns t + sec
func (p GTime) Add(sec float64) GTime {
	p.Sec += sec
	tt := math.Floor(p.Sec)
	p.Time += int64(tt)
	p.Sec -= tt
	return p
}

// Diff returns p - b in seconds
func (p GTime) Diff(b GTime) float64 {
	return float64(p.Time-b.Time) + p.Sec - b.Sec
}

// IsZero reports whether p is the zero time
func (p GTime) IsZero() bool {
	return p.Time == 0 && p.Sec == 0
}

// Str returns the time as "yyyy/mm/dd hh:mm:ss.sss" with n decimals (0..12)
func (p GTime) Str(n int) string {
	if n < 0 {
		n = 0
	} else if n > 12 {
		n = 12
	}
	if 1.0-p.Sec < 0.5/math.Pow(10.0, float64(n)) {
		p.Time++
		p.Sec = 0.0
	}
	ep := Time2Epoch(p)
	w := 2
	if n > 0 {
		w = n + 3
	}
	return fmt.Sprintf("%04.0f/%02.0f/%02.0f %02.0f:%02.0f:%0*.*f", ep[0], ep[1], ep[2], ep[3], ep[4], w, n, ep[5])
}

func (p GTime) String() string {
	return p.Str(3)
}

// StrToTime converts the substring s[i:i+n] ("... yyyy mm dd hh mm ss ...") to GTime
// - Two digit years are mapped to 1980-2079
func StrToTime(s string, i, n int) (GTime, error) {
	if i < 0 || len(s) < i {
		return GTime{}, errors.Errorf("invalid position %d in %q", i, s)
	}
	if i+n < len(s) {
		s = s[i : i+n]
	} else {
		s = s[i:]
	}
	fs := strings.Fields(s)
	if len(fs) < 6 {
		return GTime{}, errors.Errorf("not enough fields in %q", s)
	}
	var ep [6]float64
	for k := 0; k < 6; k++ {
		v, err := strconv.ParseFloat(fs[k], 64)
		if err != nil {
			return GTime{}, errors.Wrapf(err, "invalid field in %q", s)
		}
		ep[k] = v
	}
	if ep[0] < 100.0 {
		if ep[0] < 80.0 {
			ep[0] += 2000.0
		} else {
			ep[0] += 1900.0
		}
	}
	return Epoch2Time(ep), nil
}

// TimeToDOY returns the day of year of t (1.0 at Jan 1 00:00)
func TimeToDOY(t GTime) float64 {
	ep := Time2Epoch(t)
	doy := julian.DayOfYearGregorian(int(ep[0]), int(ep[1]), int(ep[2]))
	return float64(doy) + (ep[3]*3600.0+ep[4]*60.0+ep[5])/86400.0
}

// UTCToGMST returns the Greenwich mean sidereal time [rad] of UTC t
func UTCToGMST(t GTime, ut1utc float64) float64 {
	tut := t.Add(ut1utc)
	ep := Time2Epoch(tut)
	ut := ep[3]*3600.0 + ep[4]*60.0 + ep[5]
	jd0 := julian.CalendarGregorianToJD(int(ep[0]), int(ep[1]), ep[2])
	t1 := (jd0 - 2451545.0) / 36525.0 // centuries from J2000.0
	t2 := t1 * t1
	t3 := t2 * t1
	gmst0 := 24110.54841 + 8640184.812866*t1 + 0.093104*t2 - 6.2e-6*t3
	gmst := gmst0 + 1.002737909350795*ut
	return math.Mod(gmst, 86400.0) * PI / 43200.0
}

// AdjGPSWeek resolves a 10 bit GPS week number with the reference time ref (GPST)
func AdjGPSWeek(week int, ref GTime) int {
	w, _ := TimeToGPST(ref)
	if w < 1560 { // use 2009/12/1 if time is earlier than 2009/12/1
		w = 1560
	}
	return week + (w-week+512)/1024*1024
}

// Screen reports whether t is on the time interval tint and within [ts, te] (DTTOL margin)
// - A zero ts, te or tint disables the corresponding check
func Screen(t, ts, te GTime, tint float64) bool {
	if tint > 0.0 {
		_, tow := TimeToGPST(t)
		if math.Mod(tow+DTTOL, tint) > DTTOL*2.0 {
			return false
		}
	}
	if ts.Time != 0 && t.Diff(ts) < -DTTOL {
		return false
	}
	if te.Time != 0 && t.Diff(te) >= DTTOL {
		return false
	}
	return true
}

// NewGTime converts a Go time to GTime (the calendar is taken as is, no scale conversion)
func NewGTime(dt time.Time) GTime {
	return GTime{
		Time: dt.Unix(),
		Sec:  float64(dt.Nanosecond()) / 1e9,
	}
}

// ToTime converts GTime to a Go time in UTC location
func (p GTime) ToTime() time.Time {
	return time.Unix(p.Time, int64(math.Round(p.Sec*1e9))).UTC()
}

func (p GTime) Less(b GTime, roundSec bool) bool {
	if roundSec {
		return math.Round(p.Diff(b)) < 0
	}
	return p.Diff(b) < 0
}

func (p GTime) LessOrEqual(b GTime, roundSec bool) bool {
	if roundSec {
		return math.Round(p.Diff(b)) <= 0
	}
	return p.Diff(b) <= 0
}

func (p GTime) Before(t time.Time, roundSec bool) bool {
	return p.Less(NewGTime(t), roundSec)
}

func (p GTime) After(t time.Time, roundSec bool) bool {
	return NewGTime(t).Less(p, roundSec)
}

// Divisible reports whether the rounded time of week is a multiple of sec
func (p GTime) Divisible(sec int) bool {
	_, tow := TimeToGPST(p)
	return int(math.Round(tow))%sec == 0
}
