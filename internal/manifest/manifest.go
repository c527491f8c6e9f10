// Package manifest locates and normalizes the conversations.json manifest
// of a chat export.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/malegalny/Brain/internal/model"
)

// FileName is the manifest file looked up anywhere in an extracted archive.
const FileName = "conversations.json"

// Record is one raw conversation record, kept verbatim for lossless replay.
type Record json.RawMessage

// Locate finds the manifest under dir. The shallowest match wins; ties are
// broken lexically.
func Locate(dir string) (string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() == FileName {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: scan for %s: %v", model.ErrManifest, FileName, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: missing %s in archive", model.ErrManifest, FileName)
	}

	sort.SliceStable(found, func(i, j int) bool {
		di := strings.Count(found[i], string(filepath.Separator))
		dj := strings.Count(found[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return found[i] < found[j]
	})
	return found[0], nil
}

// Load reads the manifest at path. It must be a JSON list of objects.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrManifest, FileName, err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes into raw records.
func Parse(data []byte) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s must contain a list", model.ErrManifest, FileName)
		}
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrManifest, FileName, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s must contain a list", model.ErrManifest, FileName)
	}

	records := make([]Record, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 || r[0] != '{' {
			return nil, fmt.Errorf("%w: record %d is not an object", model.ErrManifest, i)
		}
		records = append(records, Record(r))
	}
	return records, nil
}
