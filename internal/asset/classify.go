// Package asset classifies, stores and registers files extracted from an export.
package asset

import (
	"path/filepath"
	"strings"

	"github.com/malegalny/Brain/internal/model"
)

var (
	imageExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".bmp": true, ".svg": true,
	}
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".m4a": true,
		".ogg": true, ".flac": true, ".aac": true,
	}
	ignoredExts = map[string]bool{
		".json": true, ".html": true, ".md": true,
	}
)

// Classify maps a file name to an asset kind by extension. The boolean is
// false for manifest and markup files, which are not registered.
func Classify(name string) (model.AssetKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return model.KindImage, true
	case audioExts[ext]:
		return model.KindAudio, true
	case ignoredExts[ext]:
		return "", false
	}
	return model.KindFile, true
}
