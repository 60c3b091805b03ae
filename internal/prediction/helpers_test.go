package prediction

import (
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

const testClass = "DATA-DECISION-REQUEST-CUSTOMER"

func modelID(name string) string {
	return testClass + "!" + name
}

// counts is a positives/negatives pair.
type counts [2]float64

// dayRows builds the raw snapshots of one prediction on one day.
type dayRows struct {
	model   string
	date    string // YYYYMMDD
	base    counts
	test    counts
	control counts
	nba     *counts
	perf    float64

	noTest    bool
	noControl bool
}

func validDay(name, date string) dayRows {
	return dayRows{
		model:   modelID(name),
		date:    date,
		base:    counts{30, 300},
		test:    counts{20, 100},
		control: counts{10, 100},
		nba:     &counts{5, 100},
		perf:    70,
	}
}

func (d dayRows) withTest(pos, neg float64) dayRows {
	d.test = counts{pos, neg}
	return d
}

func (d dayRows) withControl(pos, neg float64) dayRows {
	d.control = counts{pos, neg}
	return d
}

func (d dayRows) withBase(pos, neg float64) dayRows {
	d.base = counts{pos, neg}
	return d
}

func (d dayRows) withPerf(perf float64) dayRows {
	d.perf = perf
	return d
}

func (d dayRows) withoutNBA() dayRows {
	d.nba = nil
	return d
}

func (d dayRows) rows() []models.RawSnapshot {
	ts := d.date + "T000000.000 GMT"
	row := func(usage, snapshotType string, c counts) models.RawSnapshot {
		return models.RawSnapshot{
			ModelType:     models.ModelTypePrediction,
			ModelID:       d.model,
			SnapshotTime:  ts,
			SnapshotType:  snapshotType,
			DataUsage:     usage,
			Positives:     c[0],
			Negatives:     c[1],
			ResponseCount: c[0] + c[1],
		}
	}

	perf := d.perf
	base := row(models.DataUsageBaseline, models.SnapshotTypeDaily, d.base)
	base.Performance = &perf

	out := []models.RawSnapshot{base}
	if !d.noTest {
		out = append(out, row(models.DataUsageTest, "", d.test))
	}
	if !d.noControl {
		out = append(out, row(models.DataUsageControl, "", d.control))
	}
	if d.nba != nil {
		out = append(out, row(models.DataUsageNBA, "", *d.nba))
	}
	return out
}

func dataset(days ...dayRows) []models.RawSnapshot {
	var out []models.RawSnapshot
	for _, d := range days {
		out = append(out, d.rows()...)
	}
	return out
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrDuration(d time.Duration) *time.Duration {
	return &d
}

func mustNew(raw []models.RawSnapshot, opts ...Option) *Prediction {
	p, err := New(raw, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
