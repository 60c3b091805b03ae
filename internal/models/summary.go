package models

import "time"

// ===========================================
// CHANNEL SUMMARY
// ===========================================

// ChannelSummary aggregates the records of one prediction in one channel
// (and optionally one period).
type ChannelSummary struct {
	DateRangeMin time.Time `json:"date_range_min"`
	DateRangeMax time.Time `json:"date_range_max"`
	Duration     float64   `json:"duration"` // seconds between first and last snapshot

	Prediction               string `json:"prediction"`
	Channel                  string `json:"channel"`
	Direction                string `json:"direction"`
	ChannelDirectionGroup    string `json:"channel_direction_group"`
	IsValid                  bool   `json:"is_valid"`
	IsStandardNBADPrediction bool   `json:"is_standard_nbad_prediction"`
	IsMultiChannelPrediction bool   `json:"is_multichannel_prediction"`

	ControlPercentage Ratio `json:"control_percentage"`
	TestPercentage    Ratio `json:"test_percentage"`

	Performance      Ratio   `json:"performance"`
	Positives        float64 `json:"positives"`
	Negatives        float64 `json:"negatives"`
	Responses        float64 `json:"responses"`
	PositivesTest    float64 `json:"positives_test"`
	PositivesControl float64 `json:"positives_control"`
	PositivesNBA     float64 `json:"positives_nba"`
	NegativesTest    float64 `json:"negatives_test"`
	NegativesControl float64 `json:"negatives_control"`
	NegativesNBA     float64 `json:"negatives_nba"`

	CTR        Ratio `json:"ctr"`
	CTRTest    Ratio `json:"ctr_test"`
	CTRControl Ratio `json:"ctr_control"`
	CTRNBA     Ratio `json:"ctr_nba"`
	Lift       Ratio `json:"lift"`

	UsesImpactAnalyzer bool `json:"uses_impact_analyzer"`

	// Only set in debug mode when grouping by period
	Period *time.Time `json:"period,omitempty"`
}

// ===========================================
// OVERALL SUMMARY
// ===========================================

// OverallSummary reduces the valid channel summaries into one row per period.
type OverallSummary struct {
	DateRangeMin time.Time `json:"date_range_min"`
	DateRangeMax time.Time `json:"date_range_max"`
	Duration     float64   `json:"duration"`

	NumberOfValidChannels int   `json:"number_of_valid_channels"`
	OverallLift           Ratio `json:"overall_lift"`
	Performance           Ratio `json:"performance"`

	PositivesInbound  float64 `json:"positives_inbound"`
	PositivesOutbound float64 `json:"positives_outbound"`
	ResponsesInbound  float64 `json:"responses_inbound"`
	ResponsesOutbound float64 `json:"responses_outbound"`

	ChannelWithMinimumNegativeLift *string `json:"channel_with_minimum_negative_lift"`
	MinimumNegativeLift            Ratio   `json:"minimum_negative_lift"`

	UsesImpactAnalyzer bool  `json:"uses_impact_analyzer"`
	ControlPercentage  Ratio `json:"control_percentage"`
	TestPercentage     Ratio `json:"test_percentage"`

	Period *time.Time `json:"period,omitempty"`
}

// ===========================================
// TREND
// ===========================================

// TrendPoint is one value of a per-period time series.
type TrendPoint struct {
	Series     string    `json:"series"` // "Channel (Prediction)"
	Prediction string    `json:"prediction"`
	Channel    string    `json:"channel"`
	Date       time.Time `json:"date"`
	Value      Ratio     `json:"value"`
}
