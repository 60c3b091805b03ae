package prediction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

var (
	// ErrWindowOverSpecified is returned when start date, end date and window are all set.
	ErrWindowOverSpecified = errors.New("only two of start date, end date and window can be set")
	// ErrInvalidWindow is returned for negative windows.
	ErrInvalidWindow = errors.New("window must not be negative")
)

const day = 24 * time.Hour

// DateWindow is an inclusive range of snapshot dates.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date lies inside the window, bounds included.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// checkWindowArgs validates the argument combination without looking at data
// and returns the effective window. A zero window counts as absent; a window
// shorter than a day covers a single day.
func checkWindowArgs(start, end *time.Time, window *time.Duration) (*time.Duration, error) {
	if window != nil {
		switch w := *window; {
		case w < 0:
			return nil, fmt.Errorf("%w: got %s", ErrInvalidWindow, w)
		case w == 0:
			window = nil
		case w < day:
			oneDay := day
			window = &oneDay
		}
	}
	if start != nil && end != nil && window != nil {
		return nil, ErrWindowOverSpecified
	}
	return window, nil
}

// ResolveWindow turns the optional start/end/window arguments into a concrete
// window. Missing bounds come from the window when given, otherwise from the
// range of snapshot dates in the records. Windows count whole days, so a
// window of 7 days ending on the 7th starts on the 1st.
func ResolveWindow(records []models.PredictionRecord, start, end *time.Time, window *time.Duration) (DateWindow, error) {
	window, err := checkWindowArgs(start, end, window)
	if err != nil {
		return DateWindow{}, err
	}

	var w DateWindow
	if start != nil {
		w.Start = toDate(*start)
	}
	if end != nil {
		w.End = toDate(*end)
	}

	if start == nil && end == nil {
		first, last, ok := dateRange(records)
		if !ok {
			return DateWindow{}, nil
		}
		w.End = last
		if window == nil {
			w.Start = first
			return w, nil
		}
	}

	span := time.Duration(0)
	if window != nil {
		span = *window - day
	}

	switch {
	case start == nil && window != nil:
		w.Start = w.End.Add(-span)
	case start == nil:
		first, _, _ := dateRange(records)
		w.Start = first
	case end == nil && window != nil:
		w.End = w.Start.Add(span)
	case end == nil:
		_, last, _ := dateRange(records)
		w.End = last
	}
	return w, nil
}

// ParseWindow accepts a whole number of days ("7") or a Go duration ("168h").
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, err := strconv.Atoi(s); err == nil {
		return time.Duration(days) * day, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", s, err)
	}
	return d, nil
}

func dateRange(records []models.PredictionRecord) (first, last time.Time, ok bool) {
	for i, r := range records {
		if i == 0 || r.SnapshotTime.Before(first) {
			first = r.SnapshotTime
		}
		if i == 0 || r.SnapshotTime.After(last) {
			last = r.SnapshotTime
		}
	}
	return first, last, len(records) > 0
}

func toDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
