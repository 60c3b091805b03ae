// Package reporting loads prediction snapshots and custom channel mappings
// and serves the prediction summaries built from them.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/guidelines"
	"github.com/radiusdt/prediction-monitor/internal/metrics"
	"github.com/radiusdt/prediction-monitor/internal/models"
	"github.com/radiusdt/prediction-monitor/internal/prediction"
	"github.com/radiusdt/prediction-monitor/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service provides prediction health reporting.
type Service struct {
	source   storage.SnapshotSource
	mappings storage.MappingRepo
	catalog  *guidelines.Catalog
	cfg      config.ReportConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new reporting service.
func NewService(source storage.SnapshotSource, mappings storage.MappingRepo, cfg config.ReportConfig, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		mappings: mappings,
		catalog:  guidelines.NewCatalog(),
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Dataset is one loaded and reconciled snapshot set.
type Dataset struct {
	RunID      string
	Source     string
	LoadedAt   time.Time
	Prediction *prediction.Prediction
	Mappings   []models.ChannelMapping
}

// Request holds the summary parameters shared by the reports.
type Request struct {
	StartDate *time.Time              `json:"start_date,omitempty"`
	EndDate   *time.Time              `json:"end_date,omitempty"`
	Window    *time.Duration          `json:"-"` // encoded by MarshalJSON
	Period    string                  `json:"period,omitempty"`
	Debug     bool                    `json:"debug,omitempty"`
	Mappings  []models.ChannelMapping `json:"mappings,omitempty"` // ahead of the stored mappings
}

type requestJSON Request

// MarshalJSON encodes Window as a Go duration string ("168h0m0s").
func (r Request) MarshalJSON() ([]byte, error) {
	aux := struct {
		requestJSON
		Window string `json:"window,omitempty"`
	}{requestJSON: requestJSON(r)}
	if r.Window != nil {
		aux.Window = r.Window.String()
	}
	return json.Marshal(aux)
}

// UnmarshalJSON accepts Window in any form prediction.ParseWindow does.
func (r *Request) UnmarshalJSON(b []byte) error {
	aux := struct {
		*requestJSON
		Window string `json:"window"`
	}{requestJSON: (*requestJSON)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Window = nil
	if aux.Window != "" {
		d, err := prediction.ParseWindow(aux.Window)
		if err != nil {
			return err
		}
		r.Window = &d
	}
	return nil
}

// TrendRequest selects a trend series.
type TrendRequest struct {
	Period     string
	Metric     string
	Prediction string // optional, case-insensitive
	Channel    string // optional, case-insensitive
}

// Status describes the currently loadable dataset.
type Status struct {
	RunID        string                    `json:"run_id"`
	Source       string                    `json:"source"`
	LoadedAt     time.Time                 `json:"loaded_at"`
	Available    bool                      `json:"available"`
	Valid        bool                      `json:"valid"`
	Records      int                       `json:"records"`
	Predictions  []string                  `json:"predictions"`
	DateRangeMin *time.Time                `json:"date_range_min,omitempty"`
	DateRangeMax *time.Time                `json:"date_range_max,omitempty"`
	Reconcile    prediction.ReconcileStats `json:"reconcile"`
}

// Report bundles both summaries of one run.
type Report struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Request     Request                 `json:"request"`
	Channels    []models.ChannelSummary `json:"channels"`
	Overall     []models.OverallSummary `json:"overall"`
}

// IsRequestError reports whether err was caused by invalid summary parameters
// rather than by loading or storage.
func IsRequestError(err error) bool {
	return errors.Is(err, prediction.ErrWindowOverSpecified) ||
		errors.Is(err, prediction.ErrInvalidWindow) ||
		errors.Is(err, prediction.ErrInvalidPeriod) ||
		errors.Is(err, prediction.ErrInvalidTrendMetric)
}

// Load reads the snapshots and the custom mappings concurrently and
// reconciles the snapshots.
func (s *Service) Load(ctx context.Context) (*Dataset, error) {
	runID := uuid.NewString()
	start := s.now()

	q := storage.SnapshotQuery{}
	if s.cfg.Lookback > 0 {
		q.Since = start.Add(-s.cfg.Lookback)
	}

	var (
		raw      []models.RawSnapshot
		mappings []models.ChannelMapping
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loadStart := time.Now()
		rows, err := s.source.LoadSnapshots(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to load snapshots from %s: %w", s.source.Name(), err)
		}
		s.metrics.RecordLoad(s.source.Name(), len(rows), time.Since(loadStart))
		raw = rows
		return nil
	})
	g.Go(func() error {
		list, err := s.mappings.ListMappings(gctx)
		if err != nil {
			return fmt.Errorf("failed to load channel mappings: %w", err)
		}
		mappings = list
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dataset load failed", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}

	p, err := prediction.New(raw,
		prediction.WithChannelMapper(s.catalog),
		prediction.WithLogger(s.logger.With(zap.String("run_id", runID))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile snapshots: %w", err)
	}

	stats := p.Stats()
	s.metrics.RecordReconcile(stats.Reconciled, stats.MissingTest, stats.MissingControl, countInvalid(p.Records()))

	s.logger.Info("dataset loaded",
		zap.String("run_id", runID),
		zap.String("source", s.source.Name()),
		zap.Int("snapshots", len(raw)),
		zap.Int("records", stats.Reconciled),
		zap.Int("mappings", len(mappings)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Dataset{
		RunID:      runID,
		Source:     s.source.Name(),
		LoadedAt:   start,
		Prediction: p,
		Mappings:   mappings,
	}, nil
}

// ChannelSummary returns the per channel summary of a fresh load.
func (s *Service) ChannelSummary(ctx context.Context, req Request) ([]models.ChannelSummary, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.channelSummary(ds, req)
}

// OverallSummary returns the overall summary of a fresh load.
func (s *Service) OverallSummary(ctx context.Context, req Request) ([]models.OverallSummary, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.overallSummary(ds, req)
}

// Report computes both summaries from a single load.
func (s *Service) Report(ctx context.Context, req Request) (*Report, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := s.channelSummary(ds, req)
	if err != nil {
		return nil, err
	}
	overall, err := s.overallSummary(ds, req)
	if err != nil {
		return nil, err
	}
	return &Report{
		RunID:       ds.RunID,
		GeneratedAt: ds.LoadedAt,
		Request:     req,
		Channels:    channels,
		Overall:     overall,
	}, nil
}

// Trend returns a per period series of one channel summary metric.
func (s *Service) Trend(ctx context.Context, req TrendRequest) ([]models.TrendPoint, error) {
	metric := prediction.TrendPerformance
	if req.Metric != "" {
		m, err := prediction.ParseTrendMetric(req.Metric)
		if err != nil {
			return nil, err
		}
		metric = m
	}

	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	opts := prediction.TrendOptions{Period: req.Period, Metric: metric}
	if req.Prediction != "" || req.Channel != "" {
		opts.Keep = func(c models.ChannelSummary) bool {
			return (req.Prediction == "" || strings.EqualFold(c.Prediction, req.Prediction)) &&
				(req.Channel == "" || strings.EqualFold(c.Channel, req.Channel))
		}
	}

	start := time.Now()
	points, err := ds.Prediction.Trend(opts)
	s.metrics.RecordSummary("trend", len(points), time.Since(start), err)
	return points, err
}

// Status loads the dataset and reports its availability and validity.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	ds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	p := ds.Prediction
	records := p.Records()
	st := &Status{
		RunID:       ds.RunID,
		Source:      ds.Source,
		LoadedAt:    ds.LoadedAt,
		Available:   p.IsAvailable(),
		Valid:       p.IsValid(),
		Records:     len(records),
		Predictions: []string{},
		Reconcile:   p.Stats(),
	}

	seen := make(map[string]struct{})
	for i, r := range records {
		if _, ok := seen[r.ModelName]; !ok {
			seen[r.ModelName] = struct{}{}
			st.Predictions = append(st.Predictions, r.ModelName)
		}
		if i == 0 || r.SnapshotTime.Before(*st.DateRangeMin) {
			t := r.SnapshotTime
			st.DateRangeMin = &t
		}
		if i == 0 || r.SnapshotTime.After(*st.DateRangeMax) {
			t := r.SnapshotTime
			st.DateRangeMax = &t
		}
	}
	return st, nil
}

// Mappings lists the stored custom mappings.
func (s *Service) Mappings(ctx context.Context) ([]models.ChannelMapping, error) {
	return s.mappings.ListMappings(ctx)
}

// SaveMapping stores a custom mapping.
func (s *Service) SaveMapping(ctx context.Context, m models.ChannelMapping) error {
	if err := s.mappings.UpsertMapping(ctx, m); err != nil {
		return err
	}
	s.logger.Info("channel mapping saved",
		zap.String("prediction", m.Prediction),
		zap.String("channel", m.Channel),
		zap.String("direction", m.Direction),
	)
	return nil
}

// DeleteMapping removes a custom mapping.
func (s *Service) DeleteMapping(ctx context.Context, predictionName string) error {
	if err := s.mappings.DeleteMapping(ctx, predictionName); err != nil {
		return err
	}
	s.logger.Info("channel mapping deleted", zap.String("prediction", predictionName))
	return nil
}

func (s *Service) channelSummary(ds *Dataset, req Request) ([]models.ChannelSummary, error) {
	start := time.Now()
	rows, err := ds.Prediction.SummaryByChannel(s.summaryOptions(ds, req))
	s.metrics.RecordSummary("channels", len(rows), time.Since(start), err)
	return rows, err
}

func (s *Service) overallSummary(ds *Dataset, req Request) ([]models.OverallSummary, error) {
	start := time.Now()
	rows, err := ds.Prediction.OverallSummary(s.summaryOptions(ds, req))
	s.metrics.RecordSummary("overall", len(rows), time.Since(start), err)
	return rows, err
}

func (s *Service) summaryOptions(ds *Dataset, req Request) prediction.SummaryOptions {
	period := req.Period
	if period == "" {
		period = s.cfg.DefaultPeriod
	}

	custom := make([]models.ChannelMapping, 0, len(req.Mappings)+len(ds.Mappings))
	custom = append(custom, req.Mappings...)
	custom = append(custom, ds.Mappings...)

	return prediction.SummaryOptions{
		CustomMappings: custom,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Window:         req.Window,
		ByPeriod:       period,
		Debug:          req.Debug,
	}
}

func countInvalid(records []models.PredictionRecord) int {
	n := 0
	for _, r := range records {
		if !r.IsValidPrediction {
			n++
		}
	}
	return n
}
