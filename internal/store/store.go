// Package store provides the export storage interface and SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/malegalny/Brain/internal/model"
)

// CreateExportParams holds parameters for registering an uploaded archive.
type CreateExportParams struct {
	ID         string // optional; generated when empty
	Name       string
	SourcePath string // relative to the storage root
}

// AddMessageParams is one message in persistence order.
type AddMessageParams struct {
	Role      string
	Text      string
	CreatedAt *time.Time
}

// AddConversationParams holds a conversation and its messages.
type AddConversationParams struct {
	ExportID   string
	ExternalID string
	Title      string
	Date       *time.Time
	RawJSON    string
	Messages   []AddMessageParams
}

// ConversationFilter narrows a conversation listing.
type ConversationFilter struct {
	ExportID     string
	CategorySlug string // optional
	Query        string // optional, case-insensitive substring of message text
	Limit        int    // 0 means no limit
}

// MoveParams holds parameters for a manual conversation move. NewCategory
// wins over CategoryID when both are set.
type MoveParams struct {
	ExportID       string
	ConversationID string
	CategoryID     string
	NewCategory    string
}

// Store defines the export storage interface.
type Store interface {
	// CreateExport inserts a new export in the uploaded state.
	CreateExport(ctx context.Context, p CreateExportParams) (*model.Export, error)

	// GetExport retrieves an export by id.
	GetExport(ctx context.Context, id string) (*model.Export, error)

	// ListExports lists exports, newest first.
	ListExports(ctx context.Context) ([]model.Export, error)

	// SetStatus commits a lifecycle transition. errMsg is stored for failed,
	// cleared for ready and left untouched otherwise.
	SetStatus(ctx context.Context, id string, status model.ExportStatus, errMsg string) error

	// AddConversation stores a conversation with its messages in one transaction.
	AddConversation(ctx context.Context, p AddConversationParams) (*model.Conversation, []model.Message, error)

	// AddAsset inserts an unlinked asset.
	AddAsset(ctx context.Context, a model.Asset) (*model.Asset, error)

	// LinkAsset sets an asset's conversation/message unless already set.
	LinkAsset(ctx context.Context, assetID, conversationID, messageID string) error

	// EnsureCategory returns the export's category with the name's slug,
	// creating it when missing.
	EnsureCategory(ctx context.Context, exportID, name string, system bool) (*model.Category, error)

	// AssignCategory inserts an edge; an existing edge is left as is.
	AssignCategory(ctx context.Context, conversationID, categoryID, source string, confidence *float64) error

	// RenameCategory sets a new name and slug and marks the category operator-owned.
	RenameCategory(ctx context.Context, exportID, categoryID, name string) (*model.Category, error)

	// MoveConversation replaces every edge of a conversation with one manual edge.
	MoveConversation(ctx context.Context, p MoveParams) (*model.ConversationCategory, error)

	// ListConversations lists an export's conversations matching the filter.
	ListConversations(ctx context.Context, f ConversationFilter) ([]model.Conversation, error)

	// Messages returns a conversation's messages in persistence order.
	Messages(ctx context.Context, conversationID string) ([]model.Message, error)

	// ListCategories lists an export's categories with conversation counts.
	ListCategories(ctx context.Context, exportID string) ([]model.Category, error)

	// ListAssets lists an export's assets.
	ListAssets(ctx context.Context, exportID string) ([]model.Asset, error)

	// Close closes the store.
	Close() error
}
