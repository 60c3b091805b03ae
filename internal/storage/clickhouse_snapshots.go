package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/prediction-monitor/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseSnapshotSource reads prediction snapshots from a ClickHouse table
// with the columns model_type, model_id, snapshot_time (String,
// "YYYYMMDDTHHMMSS..."), snapshot_type, data_usage, positives, negatives,
// response_count and a Nullable(Float64) performance.
type ClickHouseSnapshotSource struct {
	conn  driver.Conn
	table string
}

// NewClickHouseSnapshotSource creates a source reading from table.
func NewClickHouseSnapshotSource(conn driver.Conn, table string) (*ClickHouseSnapshotSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid snapshot table name %q", table)
	}
	return &ClickHouseSnapshotSource{conn: conn, table: table}, nil
}

func (s *ClickHouseSnapshotSource) Name() string {
	return "clickhouse"
}

// LoadSnapshots queries the prediction-level snapshots within q.
func (s *ClickHouseSnapshotSource) LoadSnapshots(ctx context.Context, q SnapshotQuery) ([]models.RawSnapshot, error) {
	query, args := snapshotQuery(s.table, q)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.RawSnapshot
	for rows.Next() {
		var r models.RawSnapshot
		if err := rows.Scan(
			&r.ModelType, &r.ModelID, &r.SnapshotTime, &r.SnapshotType, &r.DataUsage,
			&r.Positives, &r.Negatives, &r.ResponseCount, &r.Performance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	return out, nil
}

// snapshotQuery builds the select for q. Dates compare on the YYYYMMDD prefix
// of snapshot_time, which orders lexically.
func snapshotQuery(table string, q SnapshotQuery) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT
			model_type,
			model_id,
			snapshot_time,
			snapshot_type,
			data_usage,
			toFloat64(positives),
			toFloat64(negatives),
			toFloat64(response_count),
			performance
		FROM `)
	b.WriteString(table)
	b.WriteString(`
		WHERE model_type = ?`)

	args := []any{models.ModelTypePrediction}
	if !q.Since.IsZero() {
		b.WriteString(` AND substring(snapshot_time, 1, 8) >= ?`)
		args = append(args, q.Since.UTC().Format(snapshotDateLayout))
	}
	if !q.Until.IsZero() {
		b.WriteString(` AND substring(snapshot_time, 1, 8) <= ?`)
		args = append(args, q.Until.UTC().Format(snapshotDateLayout))
	}
	b.WriteString(`
		ORDER BY model_id, snapshot_time`)
	return b.String(), args
}
