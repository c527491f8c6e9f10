package asset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout builds every on-disk location under one storage root. Rows keep
// paths relative to Root so the root can move without rewriting them.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at the absolute form of root.
func NewLayout(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve storage root: %w", err)
	}
	return Layout{Root: abs}, nil
}

// ExportDir is the storage subtree owned by one export.
func (l Layout) ExportDir(exportID string) string {
	return filepath.Join(l.Root, "exports", exportID)
}

// ExtractedDir mirrors archive-relative paths of an export's files.
func (l Layout) ExtractedDir(exportID string) string {
	return filepath.Join(l.ExportDir(exportID), "extracted")
}

// SourceArchive is where the uploaded zip is kept.
func (l Layout) SourceArchive(exportID string) string {
	return filepath.Join(l.ExportDir(exportID), "source", "export.zip")
}

// Rel converts an absolute path under Root into a slash-separated row path.
func (l Layout) Rel(path string) (string, error) {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside storage root", path)
	}
	return filepath.ToSlash(rel), nil
}

// Abs resolves a row path against Root.
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}
