package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/malegalny/Brain/internal/categorize"
	"github.com/malegalny/Brain/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const categoryColumns = `id, export_id, name, slug, is_system, created_at`

// EnsureCategory returns the export's category whose slug matches name,
// creating it when missing. An existing category keeps its name and flags.
func (s *SQLiteStore) EnsureCategory(ctx context.Context, exportID, name string, system bool) (*model.Category, error) {
	return s.ensureCategory(ctx, s.db, exportID, name, system)
}

func (s *SQLiteStore) ensureCategory(ctx context.Context, q querier, exportID, name string, system bool) (*model.Category, error) {
	slug := categorize.Slugify(name)
	now := time.Now().UTC().Format(timeLayout)

	_, err := q.ExecContext(ctx,
		`INSERT INTO categories (id, export_id, name, slug, is_system, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (export_id, slug) DO NOTHING`,
		s.NewID(), exportID, name, slug, boolInt(system), now)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE export_id = ? AND slug = ?`, exportID, slug), false)
	if err != nil {
		return nil, fmt.Errorf("load category %q: %w", slug, err)
	}
	return &c, nil
}

// AssignCategory inserts an edge. An existing edge keeps its source and confidence.
func (s *SQLiteStore) AssignCategory(ctx context.Context, conversationID, categoryID, source string, confidence *float64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversation_categories (conversation_id, category_id, source, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conversationID, categoryID, source, confidence, now)
	if err != nil {
		return fmt.Errorf("assign category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category scoped to an export.
func (s *SQLiteStore) GetCategory(ctx context.Context, exportID, categoryID string) (*model.Category, error) {
	return getCategory(ctx, s.db, exportID, categoryID)
}

func getCategory(ctx context.Context, q querier, exportID, categoryID string) (*model.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND export_id = ?`, categoryID, exportID), false)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrCategoryNotFound, categoryID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RenameCategory sets a new name and slug and marks the category operator-owned.
// Renaming onto a slug held by another category of the export is rejected.
func (s *SQLiteStore) RenameCategory(ctx context.Context, exportID, categoryID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("category name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := getCategory(ctx, tx, exportID, categoryID)
	if err != nil {
		return nil, err
	}

	slug := categorize.Slugify(name)
	var other string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE export_id = ? AND slug = ? AND id != ?`,
		exportID, slug, categoryID).Scan(&other)
	switch {
	case err == nil:
		return nil, model.Invalid("category slug %q already in use", slug)
	case err != sql.ErrNoRows:
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, is_system = 0 WHERE id = ?`,
		name, slug, categoryID); err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	c.Name, c.Slug, c.IsSystem = name, slug, false
	return c, nil
}

// MoveConversation replaces every edge of a conversation with one manual
// edge. The target is NewCategory when non-blank, otherwise CategoryID.
func (s *SQLiteStore) MoveConversation(ctx context.Context, p MoveParams) (*model.ConversationCategory, error) {
	newName := strings.TrimSpace(p.NewCategory)
	if newName == "" && p.CategoryID == "" {
		return nil, model.Invalid("category id or new category name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var convID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE id = ? AND export_id = ?`, p.ConversationID, p.ExportID).Scan(&convID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrConversationNotFound, p.ConversationID)
	}
	if err != nil {
		return nil, err
	}

	var target *model.Category
	if newName != "" {
		target, err = s.ensureCategory(ctx, tx, p.ExportID, newName, false)
	} else {
		target, err = getCategory(ctx, tx, p.ExportID, p.CategoryID)
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_categories WHERE conversation_id = ?`, convID); err != nil {
		return nil, fmt.Errorf("clear assignments: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_categories (conversation_id, category_id, source, confidence, created_at)
		 VALUES (?, ?, ?, NULL, ?)`,
		convID, target.ID, model.SourceManual, now.Format(timeLayout)); err != nil {
		return nil, fmt.Errorf("insert manual assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.ConversationCategory{
		ConversationID: convID,
		CategoryID:     target.ID,
		CategoryName:   target.Name,
		CategorySlug:   target.Slug,
		Source:         model.SourceManual,
		CreatedAt:      now,
	}, nil
}

// ConversationCategories returns a conversation's edges ordered by category name.
func (s *SQLiteStore) ConversationCategories(ctx context.Context, conversationID string) ([]model.ConversationCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cc.conversation_id, cc.category_id, c.name, c.slug, cc.source, cc.confidence, cc.created_at
		 FROM conversation_categories cc
		 JOIN categories c ON c.id = cc.category_id
		 WHERE cc.conversation_id = ?
		 ORDER BY c.name`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []model.ConversationCategory
	for rows.Next() {
		var e model.ConversationCategory
		var confidence sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&e.ConversationID, &e.CategoryID, &e.CategoryName, &e.CategorySlug,
			&e.Source, &confidence, &createdAt); err != nil {
			return nil, err
		}
		if confidence.Valid {
			v := confidence.Float64
			e.Confidence = &v
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
