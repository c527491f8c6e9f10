package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string         `json:"db_path"`
	DBSizeBytes    int64          `json:"db_size_bytes"`
	Exports        map[string]int `json:"exports_by_status"`
	Conversations  int            `json:"conversations"`
	Messages       int            `json:"messages"`
	Categories     int            `json:"categories"`
	Assets         map[string]int `json:"assets_by_type"`
	LinkedAssets   int            `json:"linked_assets"`
	ManualAssigned int            `json:"manual_assignments"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{
		DBPath:  dbPath,
		Exports: map[string]int{},
		Assets:  map[string]int{},
	}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&st.Conversations)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Messages)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&st.Categories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE conversation_id IS NOT NULL`).Scan(&st.LinkedAssets)
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_categories WHERE source = 'manual'`).Scan(&st.ManualAssigned)

	if err := s.countBy(ctx, `SELECT status, COUNT(*) FROM exports GROUP BY status`, st.Exports); err != nil {
		return st, err
	}
	if err := s.countBy(ctx, `SELECT asset_type, COUNT(*) FROM assets GROUP BY asset_type`, st.Assets); err != nil {
		return st, err
	}
	return st, nil
}

func (s *SQLiteStore) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return err
		}
		into[k] = n
	}
	return rows.Err()
}
