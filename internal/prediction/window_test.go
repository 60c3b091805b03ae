package prediction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

func windowRecords() []models.PredictionRecord {
	return []models.PredictionRecord{
		{SnapshotTime: date("2024-01-10")},
		{SnapshotTime: date("2024-01-01")},
		{SnapshotTime: date("2024-01-31")},
	}
}

func TestResolveWindow(t *testing.T) {
	week := 7 * 24 * time.Hour
	tests := []struct {
		name   string
		start  *time.Time
		end    *time.Time
		window *time.Duration
		want   DateWindow
	}{
		{
			name: "full data range",
			want: DateWindow{Start: date("2024-01-01"), End: date("2024-01-31")},
		},
		{
			name:   "window only ends on last date",
			window: ptrDuration(week),
			want:   DateWindow{Start: date("2024-01-25"), End: date("2024-01-31")},
		},
		{
			name:   "end and window",
			end:    ptrTime(date("2024-01-20")),
			window: ptrDuration(week),
			want:   DateWindow{Start: date("2024-01-14"), End: date("2024-01-20")},
		},
		{
			name:   "start and window",
			start:  ptrTime(date("2024-01-05")),
			window: ptrDuration(week),
			want:   DateWindow{Start: date("2024-01-05"), End: date("2024-01-11")},
		},
		{
			name:  "start only",
			start: ptrTime(date("2024-01-05")),
			want:  DateWindow{Start: date("2024-01-05"), End: date("2024-01-31")},
		},
		{
			name: "end only",
			end:  ptrTime(date("2024-01-05")),
			want: DateWindow{Start: date("2024-01-01"), End: date("2024-01-05")},
		},
		{
			name:  "bounds are truncated to dates",
			start: ptrTime(time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC)),
			end:   ptrTime(time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC)),
			want:  DateWindow{Start: date("2024-01-02"), End: date("2024-01-03")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWindow(windowRecords(), tt.start, tt.end, tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWindowOverSpecified(t *testing.T) {
	_, err := ResolveWindow(nil, ptrTime(date("2024-01-01")), ptrTime(date("2024-01-31")), ptrDuration(24*time.Hour))
	assert.ErrorIs(t, err, ErrWindowOverSpecified)
}

func TestResolveWindowNegative(t *testing.T) {
	_, err := ResolveWindow(windowRecords(), nil, nil, ptrDuration(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestResolveWindowZeroIsAbsent(t *testing.T) {
	got, err := ResolveWindow(windowRecords(), nil, nil, ptrDuration(0))
	require.NoError(t, err)
	assert.Equal(t, DateWindow{Start: date("2024-01-01"), End: date("2024-01-31")}, got)

	// With both dates set a zero window does not over-specify.
	got, err = ResolveWindow(windowRecords(), ptrTime(date("2024-01-03")), ptrTime(date("2024-01-09")), ptrDuration(0))
	require.NoError(t, err)
	assert.Equal(t, DateWindow{Start: date("2024-01-03"), End: date("2024-01-09")}, got)
}

func TestResolveWindowSubDayCoversOneDay(t *testing.T) {
	got, err := ResolveWindow(windowRecords(), nil, ptrTime(date("2024-01-20")), ptrDuration(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, DateWindow{Start: date("2024-01-20"), End: date("2024-01-20")}, got)
}

func TestResolveWindowNoData(t *testing.T) {
	got, err := ResolveWindow(nil, nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, got.Contains(date("2024-01-01")))
}

func TestParseWindow(t *testing.T) {
	d, err := ParseWindow("7")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = ParseWindow("48h")
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)

	_, err = ParseWindow("a week")
	assert.Error(t, err)
}
