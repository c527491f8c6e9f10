package model

import (
	"errors"
	"fmt"
)

// Fatal ingestion errors.
var (
	ErrExtraction = errors.New("archive extraction failed")
	ErrManifest   = errors.New("invalid conversation manifest")
	ErrAssetIO    = errors.New("asset io failed")
)

// Operator input and lookup errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// Sentinel errors for entity lookups. Each matches ErrNotFound via errors.Is.
var (
	ErrExportNotFound       = fmt.Errorf("export %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrCategoryNotFound     = fmt.Errorf("category %w", ErrNotFound)
)

// Invalid returns an ErrValidation carrying a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
