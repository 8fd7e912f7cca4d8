package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingStore struct {
	db *pgxpool.Pool
}

func NewSettingStore(db *pgxpool.Pool) *SettingStore {
	return &SettingStore{db: db}
}

// GetMaxCapacity reads the current per-pool occupancy cap. Operators can
// change the row at runtime, so callers must not cache the value across
// admission decisions.
func (s *SettingStore) GetMaxCapacity(ctx context.Context) (int, error) {
	var maxCapacity int
	err := s.db.QueryRow(ctx, `
		SELECT max_capacity
		FROM settings
		ORDER BY id
		LIMIT 1
	`).Scan(&maxCapacity)
	if err != nil {
		return 0, fmt.Errorf("failed to read max capacity: %w", err)
	}

	return maxCapacity, nil
}
