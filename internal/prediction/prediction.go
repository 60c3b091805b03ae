// Package prediction reconciles raw prediction snapshots and summarizes their
// health per channel and overall.
package prediction

import (
	"time"

	"github.com/radiusdt/prediction-monitor/internal/guidelines"
	"github.com/radiusdt/prediction-monitor/internal/models"
	"go.uber.org/zap"
)

// ChannelMapper resolves uppercased prediction names to channel mappings,
// with caller supplied mappings taking precedence over the built-in ones.
type ChannelMapper interface {
	PredictionsChannelMapping(custom []models.ChannelMapping) map[string]models.ChannelMapping
}

// Prediction owns the reconciled record set of one dataset.
type Prediction struct {
	records []models.PredictionRecord
	stats   ReconcileStats
	mapper  ChannelMapper
	logger  *zap.Logger
}

// Option configures a Prediction.
type Option func(*options)

type options struct {
	mapper ChannelMapper
	logger *zap.Logger
	query  func(models.PredictionRecord) bool
}

// WithChannelMapper sets the channel mapping collaborator.
func WithChannelMapper(m ChannelMapper) Option {
	return func(o *options) { o.mapper = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQuery keeps only the reconciled records matching the predicate.
func WithQuery(keep func(models.PredictionRecord) bool) Option {
	return func(o *options) { o.query = keep }
}

// SummaryOptions are the parameters shared by the summaries.
type SummaryOptions struct {
	CustomMappings []models.ChannelMapping
	StartDate      *time.Time
	EndDate        *time.Time
	Window         *time.Duration
	ByPeriod       string // e.g. "1d", "1w", "1mo"; empty for no period grouping
	Debug          bool   // keep the Period column
}

// New reconciles the raw snapshots. It only fails on snapshot timestamps
// that cannot be parsed.
func New(raw []models.RawSnapshot, opts ...Option) (*Prediction, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mapper == nil {
		o.mapper = guidelines.NewCatalog()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	records, stats, err := reconcile(raw)
	if err != nil {
		return nil, err
	}

	if o.query != nil {
		kept := records[:0]
		for _, r := range records {
			if o.query(r) {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	o.logger.Debug("reconciled prediction snapshots",
		zap.Int("input", stats.Input),
		zap.Int("anchors", stats.Anchors),
		zap.Int("missing_test", stats.MissingTest),
		zap.Int("missing_control", stats.MissingControl),
		zap.Int("reconciled", stats.Reconciled),
		zap.Int("records", len(records)),
	)

	return &Prediction{
		records: records,
		stats:   stats,
		mapper:  o.mapper,
		logger:  o.logger,
	}, nil
}

// Records returns a copy of the reconciled records, sorted by model and date.
func (p *Prediction) Records() []models.PredictionRecord {
	out := make([]models.PredictionRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Stats returns the reconciliation statistics.
func (p *Prediction) Stats() ReconcileStats {
	return p.stats
}

// IsAvailable reports whether at least one reconciled record exists.
func (p *Prediction) IsAvailable() bool {
	return len(p.records) > 0
}

// IsValid reports whether records exist and every one of them is valid.
func (p *Prediction) IsValid() bool {
	if !p.IsAvailable() {
		return false
	}
	for _, r := range p.records {
		if !r.IsValidPrediction {
			return false
		}
	}
	return true
}
