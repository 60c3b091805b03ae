package prediction

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

// TrendMetric selects the channel summary value plotted over time.
type TrendMetric string

const (
	TrendPerformance TrendMetric = "Performance"
	TrendLift        TrendMetric = "Lift"
	TrendCTR         TrendMetric = "CTR"
	TrendResponses   TrendMetric = "Responses"
)

// ErrInvalidTrendMetric is returned for unknown trend metric names.
var ErrInvalidTrendMetric = errors.New("invalid trend metric")

// DefaultTrendPeriod is used when TrendOptions.Period is empty.
const DefaultTrendPeriod = "1d"

// TrendOptions configures Trend.
type TrendOptions struct {
	Period string
	Metric TrendMetric
	// Keep optionally restricts the channel summaries that make up the series.
	Keep func(models.ChannelSummary) bool
}

// ParseTrendMetric resolves a metric name case-insensitively.
func ParseTrendMetric(s string) (TrendMetric, error) {
	for _, m := range []TrendMetric{TrendPerformance, TrendLift, TrendCTR, TrendResponses} {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTrendMetric, s)
}

// Trend returns one point per prediction, channel and period, ordered by date.
func (p *Prediction) Trend(opts TrendOptions) ([]models.TrendPoint, error) {
	period := opts.Period
	if period == "" {
		period = DefaultTrendPeriod
	}
	metric := opts.Metric
	if metric == "" {
		metric = TrendPerformance
	}
	if _, err := ParseTrendMetric(string(metric)); err != nil {
		return nil, err
	}

	rows, err := p.SummaryByChannel(SummaryOptions{ByPeriod: period})
	if err != nil {
		return nil, err
	}

	points := make([]models.TrendPoint, 0, len(rows))
	for _, r := range rows {
		if opts.Keep != nil && !opts.Keep(r) {
			continue
		}
		points = append(points, models.TrendPoint{
			Series:     fmt.Sprintf("%s (%s)", r.Channel, r.Prediction),
			Prediction: r.Prediction,
			Channel:    r.Channel,
			Date:       r.DateRangeMin,
			Value:      trendValue(r, metric),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

func trendValue(r models.ChannelSummary, metric TrendMetric) models.Ratio {
	switch metric {
	case TrendLift:
		return r.Lift
	case TrendCTR:
		return r.CTR
	case TrendResponses:
		return models.Ratio(r.Responses)
	default:
		return r.Performance
	}
}
