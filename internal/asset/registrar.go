package asset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/malegalny/Brain/internal/metrics"
	"github.com/malegalny/Brain/internal/model"
)

// assetStore is the persistence the registrar needs.
type assetStore interface {
	AddAsset(ctx context.Context, a model.Asset) (*model.Asset, error)
}

// Index maps a lower-cased file name to the ids of every asset sharing it.
type Index map[string][]string

// Add records id under name.
func (idx Index) Add(name, id string) {
	key := strings.ToLower(name)
	idx[key] = append(idx[key], id)
}

// Names returns the indexed names in lexical order.
func (idx Index) Names() []string {
	names := make([]string, 0, len(idx))
	for n := range idx {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registrar copies extracted files into permanent storage and records them.
type Registrar struct {
	store  assetStore
	layout Layout
	log    *logrus.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(store assetStore, layout Layout, log *logrus.Logger) *Registrar {
	return &Registrar{store: store, layout: layout, log: log}
}

// Register copies every regular file under srcDir except manifestPath into
// the export's extracted/ subtree and inserts an unlinked Asset row for each
// file that classifies as a kind. Any IO failure aborts the whole run.
func (r *Registrar) Register(ctx context.Context, exportID, srcDir, manifestPath string) (Index, error) {
	idx := Index{}
	extracted := r.layout.ExtractedDir(exportID)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk %s: %v", model.ErrAssetIO, path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() || path == manifestPath {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrAssetIO, err)
		}
		target := filepath.Join(extracted, rel)
		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("%w: copy %s: %v", model.ErrAssetIO, rel, err)
		}

		kind, ok := Classify(d.Name())
		if !ok {
			return nil
		}

		sum, size, err := hashFile(target)
		if err != nil {
			return fmt.Errorf("%w: hash %s: %v", model.ErrAssetIO, rel, err)
		}
		storagePath, err := r.layout.Rel(target)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrAssetIO, err)
		}

		a, err := r.store.AddAsset(ctx, model.Asset{
			ExportID:     exportID,
			Kind:         kind,
			OriginalName: d.Name(),
			StoragePath:  storagePath,
			ByteSize:     size,
			Checksum:     sum,
		})
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", rel, err)
		}
		idx.Add(d.Name(), a.ID)
		metrics.AssetsRegisteredTotal.WithLabelValues(string(kind)).Inc()

		r.log.WithFields(logrus.Fields{
			"export_id": exportID,
			"asset_id":  a.ID,
			"kind":      kind,
			"path":      storagePath,
			"bytes":     size,
		}).Debug("asset registered")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// hashFile returns the hex SHA-256 and byte size of the file at path.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
