package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/metrics"
	"github.com/radiusdt/prediction-monitor/internal/mockdata"
	"github.com/radiusdt/prediction-monitor/internal/models"
	"github.com/radiusdt/prediction-monitor/internal/prediction"
	"github.com/radiusdt/prediction-monitor/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

type recordingSource struct {
	rows    []models.RawSnapshot
	err     error
	queries []storage.SnapshotQuery
}

func (s *recordingSource) Name() string { return "recording" }

func (s *recordingSource) LoadSnapshots(ctx context.Context, q storage.SnapshotQuery) ([]models.RawSnapshot, error) {
	s.queries = append(s.queries, q)
	return s.rows, s.err
}

func newTestService(t *testing.T, cfg config.ReportConfig) (*Service, *storage.InMemoryMappingRepo, *metrics.Metrics) {
	t.Helper()
	src := storage.NewInMemorySnapshotSource(config.SourceMock, mockdata.Snapshots(testNow, mockdata.DefaultDays))
	repo := storage.NewInMemoryMappingRepo()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc := NewService(src, repo, cfg, nil, m)
	svc.now = func() time.Time { return testNow }
	return svc, repo, m
}

func TestLoad(t *testing.T) {
	svc, _, m := newTestService(t, config.ReportConfig{})

	ds, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, ds.RunID)
	assert.Equal(t, config.SourceMock, ds.Source)
	assert.Equal(t, testNow, ds.LoadedAt)
	assert.Len(t, ds.Prediction.Records(), mockdata.DefaultDays*len(mockdata.Predictions))
	assert.Empty(t, ds.Mappings)

	assert.Equal(t, float64(mockdata.DefaultDays*len(mockdata.Predictions)*4), testutil.ToFloat64(m.SnapshotsLoaded.WithLabelValues(config.SourceMock)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InvalidRecords))

	other, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, ds.RunID, other.RunID)
}

func TestLoadLookback(t *testing.T) {
	src := &recordingSource{}
	svc := NewService(src, storage.NewInMemoryMappingRepo(), config.ReportConfig{Lookback: 48 * time.Hour}, nil, nil)
	svc.now = func() time.Time { return testNow }

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, src.queries, 1)
	assert.Equal(t, testNow.Add(-48*time.Hour), src.queries[0].Since)
	assert.True(t, src.queries[0].Until.IsZero())
}

func TestLoadErrors(t *testing.T) {
	src := &recordingSource{err: errors.New("connection refused")}
	svc := NewService(src, storage.NewInMemoryMappingRepo(), config.ReportConfig{}, nil, nil)

	_, err := svc.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, IsRequestError(err))

	src = &recordingSource{rows: []models.RawSnapshot{{
		ModelType:    models.ModelTypePrediction,
		SnapshotTime: "bad",
	}}}
	svc = NewService(src, storage.NewInMemoryMappingRepo(), config.ReportConfig{}, nil, nil)
	_, err = svc.Load(context.Background())
	assert.ErrorIs(t, err, prediction.ErrInvalidSnapshotTime)
}

func TestChannelSummaryUsesStoredAndRequestMappings(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, config.ReportConfig{})
	require.NoError(t, repo.UpsertMapping(ctx, models.ChannelMapping{Prediction: "PredictWebPropensity", Channel: "Portal", Direction: "Inbound"}))
	require.NoError(t, repo.UpsertMapping(ctx, models.ChannelMapping{Prediction: "PredictMobilePropensity", Channel: "App", Direction: "Inbound"}))

	rows, err := svc.ChannelSummary(ctx, Request{
		Mappings: []models.ChannelMapping{{Prediction: "PredictMobilePropensity", Channel: "Tablet", Direction: "Inbound"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	channels := map[string]string{}
	for _, r := range rows {
		channels[r.Prediction] = r.Channel
	}
	assert.Equal(t, "Portal", channels["PREDICTWEBPROPENSITY"])
	assert.Equal(t, "Tablet", channels["PREDICTMOBILEPROPENSITY"])
	assert.Equal(t, "E-mail", channels["PREDICTOUTBOUNDEMAILPROPENSITY"])
}

func TestDefaultPeriod(t *testing.T) {
	svc, _, _ := newTestService(t, config.ReportConfig{DefaultPeriod: "1mo"})

	rows, err := svc.OverallSummary(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = svc.OverallSummary(context.Background(), Request{Period: "1y"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRequestErrors(t *testing.T) {
	svc, _, m := newTestService(t, config.ReportConfig{})
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	_, err := svc.ChannelSummary(context.Background(), Request{StartDate: &start, EndDate: &end, Window: &window})
	assert.ErrorIs(t, err, prediction.ErrWindowOverSpecified)
	assert.True(t, IsRequestError(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SummaryErrors.WithLabelValues("channels")))

	_, err = svc.OverallSummary(context.Background(), Request{Period: "3x"})
	assert.True(t, IsRequestError(err))

	_, err = svc.Trend(context.Background(), TrendRequest{Metric: "gain"})
	assert.True(t, IsRequestError(err))
}

func TestReport(t *testing.T) {
	svc, _, _ := newTestService(t, config.ReportConfig{})
	window := 14 * 24 * time.Hour

	report, err := svc.Report(context.Background(), Request{Window: &window, Period: "1w"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, testNow, report.GeneratedAt)
	assert.NotEmpty(t, report.Channels)
	require.NotEmpty(t, report.Overall)
	for _, c := range report.Channels {
		assert.False(t, c.DateRangeMin.Before(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"window":"336h0m0s"`)
	assert.Contains(t, string(data), `"period":"1w"`)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Request.Window)
	assert.Equal(t, window, *decoded.Request.Window)
	assert.Equal(t, "1w", decoded.Request.Period)
}

func TestRequestJSONWithoutWindow(t *testing.T) {
	data, err := json.Marshal(Request{Period: "1mo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"1mo"}`, string(data))

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"window":"7","debug":true}`), &req))
	require.NotNil(t, req.Window)
	assert.Equal(t, 7*24*time.Hour, *req.Window)
	assert.True(t, req.Debug)

	assert.Error(t, json.Unmarshal([]byte(`{"window":"soon"}`), &req))
}

func TestTrend(t *testing.T) {
	svc, _, _ := newTestService(t, config.ReportConfig{})

	points, err := svc.Trend(context.Background(), TrendRequest{Period: "1w", Metric: "lift", Channel: "web"})
	require.NoError(t, err)
	require.NotEmpty(t, points)
	for _, p := range points {
		assert.Equal(t, "Web", p.Channel)
		assert.Equal(t, "Web (PREDICTWEBPROPENSITY)", p.Series)
		assert.Positive(t, p.Value.Float64())
	}

	points, err = svc.Trend(context.Background(), TrendRequest{})
	require.NoError(t, err)
	assert.Len(t, points, mockdata.DefaultDays*len(mockdata.Predictions))
}

func TestStatus(t *testing.T) {
	svc, _, _ := newTestService(t, config.ReportConfig{})

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.True(t, st.Valid)
	assert.Equal(t, mockdata.DefaultDays*len(mockdata.Predictions), st.Records)
	assert.Len(t, st.Predictions, len(mockdata.Predictions))
	require.NotNil(t, st.DateRangeMin)
	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), *st.DateRangeMin)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *st.DateRangeMax)

	empty := NewService(&recordingSource{}, storage.NewInMemoryMappingRepo(), config.ReportConfig{}, nil, nil)
	st, err = empty.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Available)
	assert.False(t, st.Valid)
	assert.Nil(t, st.DateRangeMin)
	assert.NotNil(t, st.Predictions)
}

func TestMappingPassThrough(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, config.ReportConfig{})

	require.NoError(t, svc.SaveMapping(ctx, models.ChannelMapping{Prediction: "PredictKiosk", Channel: "Kiosk", Direction: "Inbound"}))
	list, err := svc.Mappings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteMapping(ctx, "PredictKiosk"))
	assert.ErrorIs(t, svc.DeleteMapping(ctx, "PredictKiosk"), storage.ErrMappingNotFound)
}
