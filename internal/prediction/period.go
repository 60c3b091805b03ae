package prediction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned for period strings that cannot be parsed.
var ErrInvalidPeriod = errors.New("invalid period")

type periodUnit int

const (
	unitDay periodUnit = iota
	unitWeek
	unitMonth
)

// Period is a calendar truncation granularity such as "1d", "1w" or "1mo".
type Period struct {
	every int
	unit  periodUnit
	raw   string
}

// Day units are counted from the Unix epoch; weeks start on Monday.
const (
	secondsPerDay = 24 * 60 * 60
	// 1970-01-01 was a Thursday, the first Monday is four days later.
	epochMondayOffset = 4
)

// ParsePeriod parses "<n><unit>" with unit d (day), w (week), mo (month),
// q (quarter) or y (year).
func ParsePeriod(s string) (Period, error) {
	raw := strings.TrimSpace(s)
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == 0 || i == len(raw) {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	n, err := strconv.Atoi(raw[:i])
	if err != nil || n <= 0 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	p := Period{every: n, raw: raw}
	switch raw[i:] {
	case "d":
		p.unit = unitDay
	case "w":
		p.unit = unitWeek
	case "mo":
		p.unit = unitMonth
	case "q":
		p.unit = unitMonth
		p.every = n * 3
	case "y":
		p.unit = unitMonth
		p.every = n * 12
	default:
		return Period{}, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (p Period) String() string {
	return p.raw
}

// Truncate returns the start of the period containing t, as a UTC date.
func (p Period) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch p.unit {
	case unitWeek:
		days := epochDays(t) - epochMondayOffset
		span := int64(7 * p.every)
		return dateFromEpochDays(floorDiv(days, span)*span + epochMondayOffset)
	case unitMonth:
		months := int64(t.Year()-1970)*12 + int64(t.Month()-1)
		start := floorDiv(months, int64(p.every)) * int64(p.every)
		year := 1970 + int(floorDiv(start, 12))
		month := time.Month(start-floorDiv(start, 12)*12) + 1
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	default:
		span := int64(p.every)
		return dateFromEpochDays(floorDiv(epochDays(t), span) * span)
	}
}

func epochDays(t time.Time) int64 {
	return floorDiv(t.Unix(), secondsPerDay)
}

func dateFromEpochDays(d int64) time.Time {
	return time.Unix(d*secondsPerDay, 0).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
