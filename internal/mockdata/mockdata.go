// Package mockdata generates a synthetic prediction snapshot dataset: three
// standard predictions with Test, Control and NBA counters and a daily
// baseline, with positives and performance drifting linearly over time.
package mockdata

import (
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

// DefaultDays is the length of the generated history.
const DefaultDays = 70

// ModelClass is the class part of the generated model identifiers.
const ModelClass = "DATA-DECISION-REQUEST-CUSTOMER"

// MockPrediction describes how the counters of one prediction evolve.
type MockPrediction struct {
	Name      string
	Control   float64 // control positives, constant
	TestFrom  float64 // test positives on the first day
	TestTo    float64 // test positives on the last day
	NBA       float64 // NBA positives, constant
	Negatives float64 // negatives per condition, constant
	PerfFrom  float64
	PerfTo    float64
}

// Predictions are the generated predictions.
var Predictions = []MockPrediction{
	{Name: "PredictOutboundEmailPropensity", Control: 100, TestFrom: 160, TestTo: 200, NBA: 120, Negatives: 10000, PerfFrom: 60, PerfTo: 65},
	{Name: "PREDICTMOBILEPROPENSITY", Control: 120, TestFrom: 250, TestTo: 300, NBA: 150, Negatives: 6000, PerfFrom: 70, PerfTo: 73},
	{Name: "PREDICTWEBPROPENSITY", Control: 1400, TestFrom: 2800, TestTo: 4000, NBA: 1520, Negatives: 40000, PerfFrom: 66, PerfTo: 68},
}

// ModelID returns the full identifier of a generated prediction.
func (m MockPrediction) ModelID() string {
	return ModelClass + "!" + m.Name
}

// Snapshots generates days of history ending on the day of now, oldest first.
func Snapshots(now time.Time, days int) []models.RawSnapshot {
	out := make([]models.RawSnapshot, 0, days*len(Predictions)*4)
	for i := 0; i < days; i++ {
		ts := now.AddDate(0, 0, i-days+1).UTC().Format("20060102T150405")
		for _, p := range Predictions {
			out = append(out, p.snapshots(ts, i, days)...)
		}
	}
	return out
}

func (m MockPrediction) snapshots(ts string, i, n int) []models.RawSnapshot {
	test := interpolate(m.TestFrom, m.TestTo, i, n)
	perf := interpolate(m.PerfFrom, m.PerfTo, i, n)

	row := func(usage, snapshotType string, positives, negatives float64) models.RawSnapshot {
		return models.RawSnapshot{
			ModelType:     models.ModelTypePrediction,
			ModelID:       m.ModelID(),
			SnapshotTime:  ts,
			SnapshotType:  snapshotType,
			DataUsage:     usage,
			Positives:     positives,
			Negatives:     negatives,
			ResponseCount: positives + negatives,
		}
	}

	baseline := row(models.DataUsageBaseline, models.SnapshotTypeDaily, m.Control+test+m.NBA, 3*m.Negatives)
	baseline.Performance = &perf

	return []models.RawSnapshot{
		row(models.DataUsageControl, "", m.Control, m.Negatives),
		row(models.DataUsageTest, "", test, m.Negatives),
		row(models.DataUsageNBA, "", m.NBA, m.Negatives),
		baseline,
	}
}

// interpolate moves linearly from "from" to "to" over n steps.
func interpolate(from, to float64, i, n int) float64 {
	if n <= 1 {
		return from
	}
	return from + (to-from)*float64(i)/float64(n-1)
}
