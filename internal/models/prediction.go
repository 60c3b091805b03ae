package models

import "time"

// ===========================================
// RECONCILED PREDICTION RECORD
// ===========================================

// Counts holds the response counters of one condition.
type Counts struct {
	Positives     float64 `json:"positives"`
	Negatives     float64 `json:"negatives"`
	ResponseCount float64 `json:"response_count"`
}

// PredictionRecord is the joined view of one prediction on one snapshot date.
type PredictionRecord struct {
	ModelID      string    `json:"model_id"`
	Class        string    `json:"class"`
	ModelName    string    `json:"model_name"`
	SnapshotTime time.Time `json:"snapshot_time"`

	// Baseline ("Daily") counters
	Positives     float64 `json:"positives"`
	Negatives     float64 `json:"negatives"`
	ResponseCount float64 `json:"response_count"`
	Performance   Ratio   `json:"performance"`

	Test    Counts  `json:"test"`
	Control Counts  `json:"control"`
	NBA     *Counts `json:"nba,omitempty"` // nil when no NBA snapshot exists

	CTR        Ratio `json:"ctr"`
	CTRTest    Ratio `json:"ctr_test"`
	CTRControl Ratio `json:"ctr_control"`
	CTRNBA     Ratio `json:"ctr_nba"`
	CTRLift    Ratio `json:"ctr_lift"`

	IsValidPrediction bool `json:"is_valid_prediction"`
}
