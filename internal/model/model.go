// Package model defines the core ingestion data types.
package model

import "time"

// ExportStatus is the lifecycle state of an export.
type ExportStatus string

const (
	StatusUploaded   ExportStatus = "uploaded"
	StatusProcessing ExportStatus = "processing"
	StatusReady      ExportStatus = "ready"
	StatusFailed     ExportStatus = "failed"
)

// AssetKind classifies a registered file.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindAudio AssetKind = "audio"
	KindFile  AssetKind = "file"
)

// Edge provenance values.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// Export is one ingestion job for a single uploaded archive.
type Export struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	Status       ExportStatus `json:"status"`
	SourcePath   string       `json:"source_zip_path"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Conversation is one chat thread within an export.
type Conversation struct {
	ID               string     `json:"id"`
	ExportID         string     `json:"export_id"`
	ExternalID       string     `json:"external_id,omitempty"`
	Title            string     `json:"title"`
	ConversationDate *time.Time `json:"conversation_date,omitempty"`
	RawJSON          string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Message is one turn within a conversation.
type Message struct {
	ID             string     `json:"id"`
	ExportID       string     `json:"export_id"`
	ConversationID string     `json:"conversation_id"`
	Seq            int        `json:"seq"`
	Role           string     `json:"role"`
	Text           string     `json:"text"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// Asset is a file extracted from an archive and registered with a checksum.
type Asset struct {
	ID             string    `json:"id"`
	ExportID       string    `json:"export_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Kind           AssetKind `json:"kind"`
	OriginalName   string    `json:"original_name"`
	StoragePath    string    `json:"storage_path"`
	ByteSize       int64     `json:"byte_size"`
	Checksum       string    `json:"checksum_sha256"`
	CreatedAt      time.Time `json:"created_at"`
}

// Linked reports whether the asset has been associated with a message.
func (a Asset) Linked() bool {
	return a.ConversationID != "" || a.MessageID != ""
}

// Category is a topical label scoped to one export.
type Category struct {
	ID        string    `json:"id"`
	ExportID  string    `json:"export_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
	// Count is the number of conversations assigned, filled by listing queries.
	Count int `json:"conversation_count,omitempty"`
}

// ConversationCategory is an assignment edge between a conversation and a category.
type ConversationCategory struct {
	ConversationID string    `json:"conversation_id"`
	CategoryID     string    `json:"category_id"`
	CategoryName   string    `json:"category_name,omitempty"`
	CategorySlug   string    `json:"category_slug,omitempty"`
	Source         string    `json:"source"`
	Confidence     *float64  `json:"confidence,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidStatuses are the allowed export states.
var ValidStatuses = map[ExportStatus]bool{
	StatusUploaded:   true,
	StatusProcessing: true,
	StatusReady:      true,
	StatusFailed:     true,
}
