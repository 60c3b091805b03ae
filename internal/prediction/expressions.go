package prediction

import (
	"math"

	"github.com/radiusdt/prediction-monitor/internal/models"
	"gonum.org/v1/gonum/stat"
)

// performanceFallback replaces a weighted performance that cannot be computed.
const performanceFallback = 0.5

// CTR returns positives / (positives + negatives). The result is undefined
// when there are no responses at all.
func CTR(positives, negatives float64) models.Ratio {
	return ratio(positives, positives+negatives)
}

// Lift returns the relative CTR improvement of the test arm over the control arm.
func Lift(ctrTest, ctrControl models.Ratio) models.Ratio {
	if !ctrTest.Defined() || !ctrControl.Defined() || ctrControl == 0 {
		return models.Undefined
	}
	return models.Ratio((ctrTest.Float64() - ctrControl.Float64()) / ctrControl.Float64())
}

// IsValid is the validity predicate shared by records and aggregated sums:
// baseline, test and control must each have seen both positive and negative
// responses. Baseline is deliberately not required to equal test + control.
func IsValid(baseline, test, control models.Counts) bool {
	return baseline.Positives > 0 &&
		test.Positives > 0 &&
		control.Positives > 0 &&
		baseline.Negatives > 0 &&
		test.Negatives > 0 &&
		control.Negatives > 0
}

// WeightedAverage returns Σ(v·w)/Σw over the pairs whose value is finite and
// whose weight is present.
func WeightedAverage(values, weights []float64) models.Ratio {
	x := make([]float64, 0, len(values))
	w := make([]float64, 0, len(values))
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(weights[i]) {
			continue
		}
		x = append(x, v)
		w = append(w, weights[i])
	}
	if len(x) == 0 {
		return models.Undefined
	}
	return models.Ratio(stat.Mean(x, w))
}

// WeightedPerformance is the response-weighted mean of performance values;
// a NaN outcome (no usable values or zero weight) falls back to 0.5.
func WeightedPerformance(values, weights []float64) models.Ratio {
	avg := WeightedAverage(values, weights)
	if math.IsNaN(avg.Float64()) {
		return models.Ratio(performanceFallback)
	}
	return avg
}

func ratio(num, den float64) models.Ratio {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return models.Undefined
	}
	return models.Ratio(num / den)
}

func percentage(part, total float64) models.Ratio {
	return ratio(100.0*part, total)
}
