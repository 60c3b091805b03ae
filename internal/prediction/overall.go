package prediction

import (
	"math"
	"sort"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
	"go.uber.org/zap"
)

// Direction values that are split out in the overall summary.
const (
	DirectionInbound  = "Inbound"
	DirectionOutbound = "Outbound"
)

// OverallSummary reduces the valid channel summaries into one row, or one
// row per period when ByPeriod is set.
func (p *Prediction) OverallSummary(opts SummaryOptions) ([]models.OverallSummary, error) {
	channels, err := p.summaryByChannel(opts, true)
	if err != nil {
		return nil, err
	}

	rows, tier := selectRows(channels, validityTiers)

	// One group without period grouping; Period is the zero time then.
	var order []time.Time
	groups := make(map[time.Time][]models.ChannelSummary)
	for _, r := range rows {
		var key time.Time
		if opts.ByPeriod != "" && r.Period != nil {
			key = *r.Period
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]models.OverallSummary, 0, len(order))
	for _, key := range order {
		s := reduceChannels(groups[key])
		if opts.Debug && opts.ByPeriod != "" {
			period := key
			s.Period = &period
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateRangeMin.Before(out[j].DateRangeMin)
	})

	p.logger.Debug("summarized predictions overall",
		zap.String("validity_tier", tier),
		zap.Int("channel_rows", len(channels)),
		zap.Int("valid_rows", len(rows)),
		zap.Int("groups", len(out)),
	)
	return out, nil
}

// reduceChannels folds the rows of one group. rows is never empty.
func reduceChannels(rows []models.ChannelSummary) models.OverallSummary {
	s := models.OverallSummary{
		DateRangeMin:        rows[0].DateRangeMin,
		DateRangeMax:        rows[0].DateRangeMax,
		Duration:            rows[0].Duration,
		MinimumNegativeLift: models.Undefined,
	}

	channels := make(map[string]struct{})
	lifts := make([]float64, len(rows))
	perf := make([]float64, len(rows))
	control := make([]float64, len(rows))
	test := make([]float64, len(rows))
	responses := make([]float64, len(rows))
	minLift := math.NaN()

	for i, r := range rows {
		if r.DateRangeMin.Before(s.DateRangeMin) {
			s.DateRangeMin = r.DateRangeMin
		}
		if r.DateRangeMax.After(s.DateRangeMax) {
			s.DateRangeMax = r.DateRangeMax
		}
		if r.Duration > s.Duration {
			s.Duration = r.Duration
		}

		channels[r.Channel+"/"+r.Direction] = struct{}{}

		lifts[i] = r.Lift.Float64()
		perf[i] = r.Performance.Float64()
		control[i] = r.ControlPercentage.Float64()
		test[i] = r.TestPercentage.Float64()
		responses[i] = r.Responses

		switch r.Direction {
		case DirectionInbound:
			s.PositivesInbound += r.Positives
			s.ResponsesInbound += r.Responses
		case DirectionOutbound:
			s.PositivesOutbound += r.Positives
			s.ResponsesOutbound += r.Responses
		}

		if r.Lift.Defined() && (math.IsNaN(minLift) || r.Lift.Float64() < minLift) {
			minLift = r.Lift.Float64()
		}
		s.UsesImpactAnalyzer = s.UsesImpactAnalyzer || r.UsesImpactAnalyzer
	}

	s.NumberOfValidChannels = len(channels)
	s.OverallLift = WeightedAverage(lifts, responses)
	s.Performance = WeightedPerformance(perf, responses)
	s.ControlPercentage = WeightedAverage(control, responses)
	s.TestPercentage = WeightedAverage(test, responses)

	// Ties on the minimum go to the first row in input order.
	if minLift < 0 {
		for _, r := range rows {
			if r.Lift.Float64() == minLift {
				channel := r.Channel
				s.ChannelWithMinimumNegativeLift = &channel
				s.MinimumNegativeLift = r.Lift
				break
			}
		}
	}
	return s
}
