package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

func TestReconcileJoinsConditions(t *testing.T) {
	records, stats, err := reconcile(validDay("PredictWebPropensity", "20240101").rows())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, testClass, r.Class)
	assert.Equal(t, "PredictWebPropensity", r.ModelName)
	assert.Equal(t, date("2024-01-01"), r.SnapshotTime)
	assert.Equal(t, 30.0, r.Positives)
	assert.Equal(t, 330.0, r.ResponseCount)
	assert.Equal(t, models.Counts{Positives: 20, Negatives: 100, ResponseCount: 120}, r.Test)
	assert.Equal(t, models.Counts{Positives: 10, Negatives: 100, ResponseCount: 110}, r.Control)
	require.NotNil(t, r.NBA)
	assert.Equal(t, 5.0, r.NBA.Positives)

	assert.InDelta(t, 30.0/330.0, r.CTR.Float64(), 1e-12)
	assert.InDelta(t, 20.0/120.0, r.CTRTest.Float64(), 1e-12)
	assert.InDelta(t, 10.0/110.0, r.CTRControl.Float64(), 1e-12)
	assert.InDelta(t, 5.0/105.0, r.CTRNBA.Float64(), 1e-12)
	assert.InDelta(t, (20.0/120.0-10.0/110.0)/(10.0/110.0), r.CTRLift.Float64(), 1e-12)
	assert.Equal(t, models.Ratio(70), r.Performance)
	assert.True(t, r.IsValidPrediction)

	assert.Equal(t, ReconcileStats{Input: 4, Predictions: 4, Anchors: 1, Reconciled: 1}, stats)
}

func TestReconcileMissingNBAIsNull(t *testing.T) {
	records, _, err := reconcile(validDay("PredictWebPropensity", "20240101").withoutNBA().rows())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].NBA)
	assert.False(t, records[0].CTRNBA.Defined())
	assert.True(t, records[0].IsValidPrediction)
}

func TestReconcileDropsAnchorsWithoutTestOrControl(t *testing.T) {
	noTest := validDay("PredictWebPropensity", "20240101")
	noTest.noTest = true
	noControl := validDay("PredictWebPropensity", "20240102")
	noControl.noControl = true
	complete := validDay("PredictWebPropensity", "20240103")

	records, stats, err := reconcile(dataset(noTest, noControl, complete))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, date("2024-01-03"), records[0].SnapshotTime)
	assert.Equal(t, 1, stats.MissingTest)
	assert.Equal(t, 1, stats.MissingControl)
	assert.Equal(t, 3, stats.Anchors)
}

func TestReconcileSkipsModelLevelRows(t *testing.T) {
	raw := validDay("PredictWebPropensity", "20240101").rows()
	for i := range raw {
		raw[i].ModelType = "ADM"
	}
	records, stats, err := reconcile(raw)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, stats.Predictions)
}

func TestReconcileInvalidSnapshotTime(t *testing.T) {
	raw := validDay("PredictWebPropensity", "20240101").rows()
	raw[0].SnapshotTime = "2024"
	_, _, err := reconcile(raw)
	assert.ErrorIs(t, err, ErrInvalidSnapshotTime)

	raw[0].SnapshotTime = "2024-01-01T00:00"
	_, _, err = reconcile(raw)
	assert.ErrorIs(t, err, ErrInvalidSnapshotTime)
}

func TestReconcileSortsByModelAndDate(t *testing.T) {
	records, _, err := reconcile(dataset(
		validDay("PredictWebPropensity", "20240102"),
		validDay("PredictMobilePropensity", "20240103"),
		validDay("PredictWebPropensity", "20240101"),
		validDay("PredictMobilePropensity", "20240101"),
	))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "PredictMobilePropensity", records[0].ModelName)
	assert.Equal(t, date("2024-01-01"), records[0].SnapshotTime)
	assert.Equal(t, "PredictMobilePropensity", records[1].ModelName)
	assert.Equal(t, date("2024-01-03"), records[1].SnapshotTime)
	assert.Equal(t, "PredictWebPropensity", records[2].ModelName)
	assert.Equal(t, date("2024-01-01"), records[2].SnapshotTime)
	assert.Equal(t, date("2024-01-02"), records[3].SnapshotTime)
}

func TestReconcileCTRBounds(t *testing.T) {
	records, _, err := reconcile(dataset(
		validDay("A", "20240101"),
		validDay("B", "20240101").withBase(0, 10),
		validDay("C", "20240101").withBase(0, 0),
		validDay("D", "20240101").withBase(10, 0),
	))
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, r := range records {
		if !r.CTR.Defined() {
			assert.Zero(t, r.Positives+r.Negatives, r.ModelName)
			continue
		}
		assert.GreaterOrEqual(t, r.CTR.Float64(), 0.0)
		assert.LessOrEqual(t, r.CTR.Float64(), 1.0)
		if r.CTR == 0 {
			assert.Zero(t, r.Positives, r.ModelName)
			assert.Positive(t, r.Negatives, r.ModelName)
		}
	}
}

func TestReconcileValidityMatchesCounters(t *testing.T) {
	records, _, err := reconcile(dataset(
		validDay("A", "20240101"),
		validDay("B", "20240101").withTest(0, 100),
		validDay("C", "20240101").withControl(10, 0),
		validDay("D", "20240101").withBase(0, 10),
	))
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, r := range records {
		allPositive := r.Positives > 0 && r.Negatives > 0 &&
			r.Test.Positives > 0 && r.Test.Negatives > 0 &&
			r.Control.Positives > 0 && r.Control.Negatives > 0
		assert.Equal(t, allPositive, r.IsValidPrediction, r.ModelName)
	}
	assert.True(t, records[0].IsValidPrediction)
}

func TestSplitModelID(t *testing.T) {
	class, name := splitModelID("DATA-DECISION!PredictWebPropensity")
	assert.Equal(t, "DATA-DECISION", class)
	assert.Equal(t, "PredictWebPropensity", name)

	class, name = splitModelID("A!B!C")
	assert.Equal(t, "A", class)
	assert.Equal(t, "B!C", name)

	class, name = splitModelID("NoSeparator")
	assert.Empty(t, class)
	assert.Empty(t, name)
}
