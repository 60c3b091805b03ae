package prediction

import "github.com/radiusdt/prediction-monitor/internal/models"

// rowFilter is one tier of the validity policy.
type rowFilter struct {
	name string
	keep func(models.ChannelSummary) bool
}

// validityTiers are tried in order; the first tier that keeps any row is
// used. Multichannel predictions only count when no valid single channel
// prediction exists.
var validityTiers = []rowFilter{
	{
		name: "valid_single_channel",
		keep: func(s models.ChannelSummary) bool { return s.IsValid && !s.IsMultiChannelPrediction },
	},
	{
		name: "valid",
		keep: func(s models.ChannelSummary) bool { return s.IsValid },
	},
}

// selectRows applies the first tier that yields a non-empty result. When no
// tier matches anything the result is empty and the last tier is reported.
func selectRows(rows []models.ChannelSummary, tiers []rowFilter) ([]models.ChannelSummary, string) {
	var applied string
	for _, tier := range tiers {
		applied = tier.name
		var kept []models.ChannelSummary
		for _, r := range rows {
			if tier.keep(r) {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			return kept, applied
		}
	}
	return nil, applied
}
