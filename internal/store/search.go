package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/malegalny/Brain/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListConversations lists an export's conversations, most recent first by
// conversation date, falling back to ingestion time. Query matches message
// text case-insensitively; LIKE wildcards in it are literal.
func (s *SQLiteStore) ListConversations(ctx context.Context, f ConversationFilter) ([]model.Conversation, error) {
	where := []string{"c.export_id = ?"}
	args := []interface{}{f.ExportID}

	if f.CategorySlug != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM conversation_categories cc
			JOIN categories cat ON cat.id = cc.category_id
			WHERE cc.conversation_id = c.id AND cat.slug = ?)`)
		args = append(args, f.CategorySlug)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM messages m
			WHERE m.conversation_id = c.id AND lower(m.content_text) LIKE ? ESCAPE '\')`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.export_id, c.external_id, c.title, c.conversation_date, c.raw_json, c.created_at
		FROM conversations c
		WHERE %s
		ORDER BY COALESCE(c.conversation_date, c.created_at) DESC, c.id`, strings.Join(where, " AND "))
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation retrieves a conversation scoped to an export.
func (s *SQLiteStore) GetConversation(ctx context.Context, exportID, id string) (*model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT id, export_id, external_id, title, conversation_date, raw_json, created_at
		 FROM conversations WHERE id = ? AND export_id = ?`, id, exportID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
