package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/prediction-monitor/internal/models"
)

// PostgresMappingRepo implements MappingRepo using PostgreSQL.
type PostgresMappingRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresMappingRepo(pool *pgxpool.Pool) *PostgresMappingRepo {
	return &PostgresMappingRepo{pool: pool}
}

func (r *PostgresMappingRepo) ListMappings(ctx context.Context) ([]models.ChannelMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT prediction, channel, direction, is_standard_prediction, is_multichannel
		FROM channel_mappings ORDER BY prediction
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel mappings: %w", err)
	}
	defer rows.Close()

	var out []models.ChannelMapping
	for rows.Next() {
		var m models.ChannelMapping
		if err := rows.Scan(&m.Prediction, &m.Channel, &m.Direction, &m.IsStandardNBADPrediction, &m.IsMultiChannelPrediction); err != nil {
			return nil, fmt.Errorf("failed to scan channel mapping: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list channel mappings: %w", err)
	}
	return out, nil
}

func (r *PostgresMappingRepo) UpsertMapping(ctx context.Context, m models.ChannelMapping) error {
	m, err := normalizeMapping(m)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO channel_mappings (prediction, channel, direction, is_standard_prediction, is_multichannel, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (prediction) DO UPDATE SET
			channel = EXCLUDED.channel,
			direction = EXCLUDED.direction,
			is_standard_prediction = EXCLUDED.is_standard_prediction,
			is_multichannel = EXCLUDED.is_multichannel,
			updated_at = NOW()
	`, m.Prediction, m.Channel, m.Direction, m.IsStandardNBADPrediction, m.IsMultiChannelPrediction)
	if err != nil {
		return fmt.Errorf("failed to upsert channel mapping: %w", err)
	}
	return nil
}

func (r *PostgresMappingRepo) DeleteMapping(ctx context.Context, prediction string) error {
	key := strings.ToUpper(strings.TrimSpace(prediction))

	tag, err := r.pool.Exec(ctx, `DELETE FROM channel_mappings WHERE prediction = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete channel mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, key)
	}
	return nil
}
