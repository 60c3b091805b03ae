package prediction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

// ErrInvalidSnapshotTime is returned when a snapshot timestamp has no
// parsable YYYYMMDD prefix.
var ErrInvalidSnapshotTime = errors.New("invalid snapshot time")

const snapshotDateLayout = "20060102"

// ReconcileStats describes what the reconciliation join kept and dropped.
type ReconcileStats struct {
	Input          int // raw rows received
	Predictions    int // rows tagged as prediction-level data
	Anchors        int // baseline ("Daily") rows
	MissingTest    int // anchors dropped for lack of a Test snapshot
	MissingControl int // anchors dropped for lack of a Control snapshot
	Reconciled     int
}

// snapshotKey identifies one prediction on one day.
type snapshotKey struct {
	modelID string
	day     int64
}

type preparedRow struct {
	raw  models.RawSnapshot
	date time.Time
}

// conditionIndex holds the counters of one condition keyed by model and day,
// in input order.
type conditionIndex map[snapshotKey][]models.Counts

func (idx conditionIndex) add(k snapshotKey, r models.RawSnapshot) {
	idx[k] = append(idx[k], models.Counts{
		Positives:     r.Positives,
		Negatives:     r.Negatives,
		ResponseCount: r.ResponseCount,
	})
}

// reconcile joins baseline, Test, Control and NBA snapshots into one record
// per prediction and day. Baselines without a Test or a Control counterpart
// are dropped without error; a missing NBA snapshot leaves NBA nil.
func reconcile(raw []models.RawSnapshot) ([]models.PredictionRecord, ReconcileStats, error) {
	stats := ReconcileStats{Input: len(raw)}

	prepared := make([]preparedRow, 0, len(raw))
	for _, r := range raw {
		if r.ModelType != models.ModelTypePrediction {
			continue
		}
		date, err := parseSnapshotDate(r.SnapshotTime)
		if err != nil {
			return nil, stats, err
		}
		prepared = append(prepared, preparedRow{raw: r, date: date})
	}
	stats.Predictions = len(prepared)

	test := conditionIndex{}
	control := conditionIndex{}
	nba := conditionIndex{}
	var anchors []preparedRow

	for _, p := range prepared {
		k := snapshotKey{modelID: p.raw.ModelID, day: epochDays(p.date)}
		switch p.raw.DataUsage {
		case models.DataUsageTest:
			test.add(k, p.raw)
		case models.DataUsageControl:
			control.add(k, p.raw)
		case models.DataUsageNBA:
			nba.add(k, p.raw)
		}
		if p.raw.SnapshotType == models.SnapshotTypeDaily {
			anchors = append(anchors, p)
		}
	}
	stats.Anchors = len(anchors)

	records := make([]models.PredictionRecord, 0, len(anchors))
	for _, a := range anchors {
		k := snapshotKey{modelID: a.raw.ModelID, day: epochDays(a.date)}

		tests, ok := test[k]
		if !ok {
			stats.MissingTest++
			continue
		}
		controls, ok := control[k]
		if !ok {
			stats.MissingControl++
			continue
		}

		nbas := []*models.Counts{nil}
		if found := nba[k]; len(found) > 0 {
			nbas = make([]*models.Counts, len(found))
			for i := range found {
				nbas[i] = &found[i]
			}
		}

		for _, t := range tests {
			for _, c := range controls {
				for _, n := range nbas {
					records = append(records, newRecord(a, t, c, n))
				}
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ModelID != records[j].ModelID {
			return records[i].ModelID < records[j].ModelID
		}
		return records[i].SnapshotTime.Before(records[j].SnapshotTime)
	})
	stats.Reconciled = len(records)

	return records, stats, nil
}

func newRecord(anchor preparedRow, test, control models.Counts, nba *models.Counts) models.PredictionRecord {
	class, name := splitModelID(anchor.raw.ModelID)

	rec := models.PredictionRecord{
		ModelID:       anchor.raw.ModelID,
		Class:         class,
		ModelName:     name,
		SnapshotTime:  anchor.date,
		Positives:     anchor.raw.Positives,
		Negatives:     anchor.raw.Negatives,
		ResponseCount: anchor.raw.ResponseCount,
		Performance:   models.Undefined,
		Test:          test,
		Control:       control,
		CTRNBA:        models.Undefined,
	}
	if anchor.raw.Performance != nil {
		// performance is kept at single precision
		rec.Performance = models.Ratio(float32(*anchor.raw.Performance))
	}
	if nba != nil {
		counts := *nba
		rec.NBA = &counts
		rec.CTRNBA = CTR(counts.Positives, counts.Negatives)
	}

	rec.CTR = CTR(rec.Positives, rec.Negatives)
	rec.CTRTest = CTR(test.Positives, test.Negatives)
	rec.CTRControl = CTR(control.Positives, control.Negatives)
	rec.CTRLift = Lift(rec.CTRTest, rec.CTRControl)
	rec.IsValidPrediction = IsValid(baselineCounts(rec), test, control)
	return rec
}

func baselineCounts(r models.PredictionRecord) models.Counts {
	return models.Counts{
		Positives:     r.Positives,
		Negatives:     r.Negatives,
		ResponseCount: r.ResponseCount,
	}
}

func parseSnapshotDate(s string) (time.Time, error) {
	if len(s) < len(snapshotDateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSnapshotTime, s)
	}
	t, err := time.Parse(snapshotDateLayout, s[:len(snapshotDateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSnapshotTime, s)
	}
	return t, nil
}

// splitModelID splits "Class!Name" on the first '!'. Identifiers without a
// separator yield empty class and name.
func splitModelID(id string) (class, name string) {
	class, name, ok := strings.Cut(id, "!")
	if !ok || class == "" || name == "" {
		return "", ""
	}
	return class, name
}
