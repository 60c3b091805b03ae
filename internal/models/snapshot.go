package models

// ===========================================
// RAW SNAPSHOT
// ===========================================

// Condition tags carried in RawSnapshot.DataUsage.
const (
	DataUsageTest     = "Test"
	DataUsageControl  = "Control"
	DataUsageNBA      = "NBA"
	DataUsageBaseline = ""
)

const (
	// ModelTypePrediction marks prediction-level rows (as opposed to model-level rows).
	ModelTypePrediction = "PREDICTION"
	// SnapshotTypeDaily marks the baseline rows that anchor the reconciliation.
	SnapshotTypeDaily = "Daily"
)

// RawSnapshot is one observation as delivered by the ingestion layer.
type RawSnapshot struct {
	ModelType    string `json:"model_type"`
	ModelID      string `json:"model_id"`      // Class!Name
	SnapshotTime string `json:"snapshot_time"` // YYYYMMDD prefix, e.g. 20240131T000000.000
	SnapshotType string `json:"snapshot_type"` // "Daily" for baseline rows
	DataUsage    string `json:"data_usage"`    // Test, Control, NBA or ""

	Positives     float64 `json:"positives"`
	Negatives     float64 `json:"negatives"`
	ResponseCount float64 `json:"response_count"`

	// Only filled in on baseline rows
	Performance *float64 `json:"performance,omitempty"`
}
