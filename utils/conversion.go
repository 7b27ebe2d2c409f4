package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ClockLayout = "15:04:05"
	DateLayout  = "2006-01-02"
)

// LoadLocation resolves an IANA zone name, falling back when it is empty or unknown.
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// FromMillis converts epoch milliseconds to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// LocalClock formats the wall-clock time of ms in loc as HH:mm:ss.
func LocalClock(ms int64, loc *time.Location) string {
	return FromMillis(ms, loc).Format(ClockLayout)
}

// LocalDate formats the calendar date of ms in loc as an ISO date.
func LocalDate(ms int64, loc *time.Location) string {
	return FromMillis(ms, loc).Format(DateLayout)
}

// NextDayAt returns clock on the calendar day after t in loc. Across a DST
// change the result is 23 or 25 hours later. A clock inside a spring-forward
// gap is normalised by time.Date for that day only.
func NextDayAt(t time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, h, m, s, 0, loc), nil
}

// CanonicalClock rewrites "H:mm[:ss]" as "HH:mm:ss".
func CanonicalClock(clock string) (string, error) {
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

// ParseClock parses "HH:mm" or "HH:mm:ss".
func ParseClock(s string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		// tolerate fractional seconds as produced by LocalTime.toString
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		v, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("invalid clock value %q: %w", s, convErr)
		}
		vals[i] = v
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 || vals[0] < 0 || vals[1] < 0 || vals[2] < 0 {
		return 0, 0, 0, fmt.Errorf("clock value out of range %q", s)
	}
	return vals[0], vals[1], vals[2], nil
}

// NextOccurrence returns the first instant strictly after now whose wall
// clock in loc equals clock.
func NextOccurrence(clock string, now time.Time, loc *time.Location) (time.Time, error) {
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	ln := now.In(loc)
	at := time.Date(ln.Year(), ln.Month(), ln.Day(), h, m, s, 0, loc)
	if !at.After(now) {
		at = time.Date(ln.Year(), ln.Month(), ln.Day()+1, h, m, s, 0, loc)
	}
	return at, nil
}

// FormatDisplayTime renders "HH:mm[:ss]" as "9:05 AM". Unparseable input is
// returned unchanged.
func FormatDisplayTime(clock string) string {
	h, m, _, err := ParseClock(clock)
	if err != nil {
		return clock
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	display := h
	switch {
	case h == 0:
		display = 12
	case h > 12:
		display = h - 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, period)
}
