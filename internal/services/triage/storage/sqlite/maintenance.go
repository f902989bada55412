package sqlite

import (
	"context"
	"fmt"
)

// RowCounts reports table sizes for operator tooling.
type RowCounts struct {
	Classifications int64 `json:"classifications"`
	Tasks           int64 `json:"tasks"`
	Briefs          int64 `json:"briefs"`
}

// CountRows reports the number of rows in each table.
func (s *Store) CountRows(ctx context.Context) (RowCounts, error) {
	if err := s.ready(ctx); err != nil {
		return RowCounts{}, err
	}
	var counts RowCounts
	tables := []struct {
		name string
		dst  *int64
	}{
		{name: "classifications", dst: &counts.Classifications},
		{name: "tasks", dst: &counts.Tasks},
		{name: "briefs", dst: &counts.Briefs},
	}
	for _, table := range tables {
		row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.name)
		if err := row.Scan(table.dst); err != nil {
			return RowCounts{}, fmt.Errorf("count %s: %w", table.name, err)
		}
	}
	return counts, nil
}

// ResetClassifications deletes every classification row. Tasks cascade
// through the foreign key.
func (s *Store) ResetClassifications(ctx context.Context) (int64, error) {
	return s.resetTable(ctx, "classifications")
}

// ResetTasks deletes every task row.
func (s *Store) ResetTasks(ctx context.Context) (int64, error) {
	return s.resetTable(ctx, "tasks")
}

// ResetBriefs deletes every brief row.
func (s *Store) ResetBriefs(ctx context.Context) (int64, error) {
	return s.resetTable(ctx, "briefs")
}

func (s *Store) resetTable(ctx context.Context, table string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", table, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted %s rows: %w", table, err)
	}
	return deleted, nil
}
