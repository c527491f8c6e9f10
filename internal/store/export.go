package store

import (
	"context"

	"github.com/malegalny/Brain/internal/model"
)

// Messages returns a conversation's messages in persistence order, which is
// timestamp order with untimed messages last.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, export_id, conversation_id, seq, role, content_text, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListCategories lists an export's categories by name with the number of
// conversations assigned to each.
func (s *SQLiteStore) ListCategories(ctx context.Context, exportID string) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cat.id, cat.export_id, cat.name, cat.slug, cat.is_system, cat.created_at,
		        COUNT(cc.conversation_id)
		 FROM categories cat
		 LEFT JOIN conversation_categories cc ON cc.category_id = cat.id
		 WHERE cat.export_id = ?
		 GROUP BY cat.id
		 ORDER BY cat.name ASC`, exportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		c, err := scanCategory(rows, true)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListAssets lists an export's assets, newest first.
func (s *SQLiteStore) ListAssets(ctx context.Context, exportID string) ([]model.Asset, error) {
	return s.queryAssets(ctx,
		`SELECT id, export_id, conversation_id, message_id, asset_type, original_name,
		        storage_path, byte_size, checksum_sha256, created_at
		 FROM assets WHERE export_id = ? ORDER BY created_at DESC, id`, exportID)
}

// ConversationAssets lists the assets linked to a conversation.
func (s *SQLiteStore) ConversationAssets(ctx context.Context, conversationID string) ([]model.Asset, error) {
	return s.queryAssets(ctx,
		`SELECT id, export_id, conversation_id, message_id, asset_type, original_name,
		        storage_path, byte_size, checksum_sha256, created_at
		 FROM assets WHERE conversation_id = ? ORDER BY original_name, id`, conversationID)
}

func (s *SQLiteStore) queryAssets(ctx context.Context, query string, args ...interface{}) ([]model.Asset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
