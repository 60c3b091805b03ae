package storage

import (
	"context"
	"errors"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

var (
	// ErrMappingNotFound is returned when deleting a mapping that does not exist.
	ErrMappingNotFound = errors.New("channel mapping not found")
	// ErrInvalidMapping is returned for mappings without a prediction name.
	ErrInvalidMapping = errors.New("invalid channel mapping")
)

// =============================================
// SNAPSHOT SOURCE
// =============================================

// SnapshotQuery bounds a snapshot load by snapshot date. Zero bounds are open.
type SnapshotQuery struct {
	Since time.Time
	Until time.Time
}

// SnapshotSource loads raw prediction snapshots.
type SnapshotSource interface {
	LoadSnapshots(ctx context.Context, q SnapshotQuery) ([]models.RawSnapshot, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// =============================================
// MAPPING REPOSITORY
// =============================================

// MappingRepo stores the custom channel mappings that take precedence over
// the built-in catalog. Prediction names are stored uppercased.
type MappingRepo interface {
	ListMappings(ctx context.Context) ([]models.ChannelMapping, error)
	UpsertMapping(ctx context.Context, m models.ChannelMapping) error
	DeleteMapping(ctx context.Context, prediction string) error
}
