package prediction

import (
	"sort"
	"strings"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
	"go.uber.org/zap"
)

// Placeholder categories for predictions missing from the channel mapping.
const (
	UnknownChannel   = "Unknown"
	UnknownDirection = "Unknown"
	OtherGroup       = "Other"
)

// channelKey is the grouping key of the channel summary. period is the zero
// time when no period grouping is requested.
type channelKey struct {
	prediction string
	channel    string
	direction  string
	standard   bool
	multi      bool
	period     time.Time
}

type channelAccumulator struct {
	key      channelKey
	seen     bool
	min, max time.Time

	perf    []float64
	weights []float64

	positives, negatives, responses    float64
	positivesTest, negativesTest       float64
	positivesControl, negativesControl float64
	positivesNBA, negativesNBA         float64
}

func (a *channelAccumulator) add(r models.PredictionRecord) {
	if !a.seen || r.SnapshotTime.Before(a.min) {
		a.min = r.SnapshotTime
	}
	if !a.seen || r.SnapshotTime.After(a.max) {
		a.max = r.SnapshotTime
	}
	a.seen = true

	a.perf = append(a.perf, r.Performance.Float64())
	a.weights = append(a.weights, r.ResponseCount)

	a.positives += r.Positives
	a.negatives += r.Negatives
	a.responses += r.ResponseCount
	a.positivesTest += r.Test.Positives
	a.negativesTest += r.Test.Negatives
	a.positivesControl += r.Control.Positives
	a.negativesControl += r.Control.Negatives
	if r.NBA != nil {
		a.positivesNBA += r.NBA.Positives
		a.negativesNBA += r.NBA.Negatives
	}
}

func (a *channelAccumulator) summary(keepPeriod bool) models.ChannelSummary {
	s := models.ChannelSummary{
		DateRangeMin:             a.min,
		DateRangeMax:             a.max,
		Duration:                 a.max.Sub(a.min).Seconds(),
		Prediction:               a.key.prediction,
		Channel:                  a.key.channel,
		Direction:                a.key.direction,
		IsStandardNBADPrediction: a.key.standard,
		IsMultiChannelPrediction: a.key.multi,
		Performance:              WeightedPerformance(a.perf, a.weights),
		Positives:                a.positives,
		Negatives:                a.negatives,
		Responses:                a.responses,
		PositivesTest:            a.positivesTest,
		PositivesControl:         a.positivesControl,
		PositivesNBA:             a.positivesNBA,
		NegativesTest:            a.negativesTest,
		NegativesControl:         a.negativesControl,
		NegativesNBA:             a.negativesNBA,
	}

	s.UsesImpactAnalyzer = a.positivesNBA > 0 && a.negativesNBA > 0

	testTotal := a.positivesTest + a.negativesTest
	controlTotal := a.positivesControl + a.negativesControl
	total := testTotal + controlTotal + a.positivesNBA + a.negativesNBA
	s.ControlPercentage = percentage(controlTotal, total)
	s.TestPercentage = percentage(testTotal, total)

	s.CTR = CTR(a.positives, a.negatives)
	s.CTRTest = CTR(a.positivesTest, a.negativesTest)
	s.CTRControl = CTR(a.positivesControl, a.negativesControl)
	s.CTRNBA = CTR(a.positivesNBA, a.negativesNBA)
	s.Lift = Lift(s.CTRTest, s.CTRControl)

	s.ChannelDirectionGroup = channelDirectionGroup(s.Channel, s.Direction, s.IsMultiChannelPrediction)
	s.IsValid = IsValid(
		models.Counts{Positives: a.positives, Negatives: a.negatives},
		models.Counts{Positives: a.positivesTest, Negatives: a.negativesTest},
		models.Counts{Positives: a.positivesControl, Negatives: a.negativesControl},
	)

	if keepPeriod {
		period := a.key.period
		s.Period = &period
	}
	return s
}

// SummaryByChannel summarizes the records in the requested window per
// prediction and channel, optionally per period.
func (p *Prediction) SummaryByChannel(opts SummaryOptions) ([]models.ChannelSummary, error) {
	return p.summaryByChannel(opts, opts.Debug)
}

func (p *Prediction) summaryByChannel(opts SummaryOptions, keepPeriod bool) ([]models.ChannelSummary, error) {
	if _, err := checkWindowArgs(opts.StartDate, opts.EndDate, opts.Window); err != nil {
		return nil, err
	}

	var period *Period
	if opts.ByPeriod != "" {
		parsed, err := ParsePeriod(opts.ByPeriod)
		if err != nil {
			return nil, err
		}
		period = &parsed
	}

	window, err := ResolveWindow(p.records, opts.StartDate, opts.EndDate, opts.Window)
	if err != nil {
		return nil, err
	}

	mapping := p.mapper.PredictionsChannelMapping(opts.CustomMappings)

	groups := make(map[channelKey]*channelAccumulator)
	var order []*channelAccumulator
	for _, r := range p.records {
		if !window.Contains(r.SnapshotTime) {
			continue
		}

		key := channelKey{prediction: strings.ToUpper(r.ModelName)}
		if m, ok := mapping[key.prediction]; ok {
			key.channel = m.Channel
			key.direction = m.Direction
			key.standard = m.IsStandardNBADPrediction
			key.multi = m.IsMultiChannelPrediction
		} else {
			key.channel = UnknownChannel
			key.direction = UnknownDirection
		}
		if period != nil {
			key.period = period.Truncate(r.SnapshotTime)
		}

		acc, ok := groups[key]
		if !ok {
			acc = &channelAccumulator{key: key}
			groups[key] = acc
			order = append(order, acc)
		}
		acc.add(r)
	}

	out := make([]models.ChannelSummary, 0, len(order))
	for _, acc := range order {
		out = append(out, acc.summary(keepPeriod && period != nil))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Prediction != out[j].Prediction {
			return out[i].Prediction < out[j].Prediction
		}
		return out[i].DateRangeMin.Before(out[j].DateRangeMin)
	})

	p.logger.Debug("summarized predictions by channel",
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.String("period", opts.ByPeriod),
		zap.Int("groups", len(out)),
	)
	return out, nil
}

// channelDirectionGroup rolls Channel/Direction up into "Other" for
// placeholder categories and multichannel predictions.
func channelDirectionGroup(channel, direction string, multi bool) string {
	if multi || isPlaceholder(channel) || isPlaceholder(direction) {
		return OtherGroup
	}
	return channel + "/" + direction
}

func isPlaceholder(s string) bool {
	switch s {
	case "Other", "Unknown", "":
		return true
	}
	return false
}
