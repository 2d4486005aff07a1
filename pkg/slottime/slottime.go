// Package slottime extracts calendar dates and wall-clock times from the
// timestamp strings the clinic backend sends. No timezone conversion is done:
// a slot's time is the time as written.
package slottime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

var (
	clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	datePattern  = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2})`)
)

// TimeOfDay returns the zero-padded "HH:MM" of ts.
// The ISO "T" separator is tried first, then a space, then any H:MM in the string.
func TimeOfDay(ts string) (string, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "", false
	}
	if i := strings.IndexByte(ts, 'T'); i >= 0 {
		if hm, ok := leadingClock(ts[i+1:]); ok {
			return hm, true
		}
	}
	if i := strings.IndexByte(ts, ' '); i >= 0 {
		if hm, ok := leadingClock(ts[i+1:]); ok {
			return hm, true
		}
	}
	m := clockPattern.FindStringSubmatch(ts)
	if m == nil {
		return "", false
	}
	return format(m[1], m[2])
}

// DateOf returns the leading YYYY-MM-DD of ts.
func DateOf(ts string) (civil.Date, bool) {
	m := datePattern.FindStringSubmatch(ts)
	if m == nil {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(m[1])
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// OnDate reports whether ts falls on date.
func OnDate(ts string, date civil.Date) bool {
	d, ok := DateOf(ts)
	return ok && d == date
}

// ParseDate parses a YYYY-MM-DD query value.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

func leadingClock(s string) (string, bool) {
	m := clockPattern.FindStringSubmatchIndex(s)
	if m == nil || m[0] != 0 {
		return "", false
	}
	return format(s[m[2]:m[3]], s[m[4]:m[5]])
}

func format(hour, minute string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 23 {
		return "", false
	}
	mi, err := strconv.Atoi(minute)
	if err != nil || mi > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, mi), true
}
