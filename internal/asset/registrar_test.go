package asset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/malegalny/Brain/internal/model"
)

type memAssets struct {
	assets []model.Asset
	fail   bool
}

func (m *memAssets) AddAsset(_ context.Context, a model.Asset) (*model.Asset, error) {
	if m.fail {
		return nil, errors.New("db down")
	}
	a.ID = fmt.Sprintf("a%d", len(m.assets)+1)
	m.assets = append(m.assets, a)
	return &a, nil
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegister(t *testing.T) {
	src := t.TempDir()
	layout := Layout{Root: t.TempDir()}

	manifest := filepath.Join(src, "export", "conversations.json")
	writeFile(t, manifest, "[]")
	writeFile(t, filepath.Join(src, "export", "photo.png"), "png-bytes")
	writeFile(t, filepath.Join(src, "other", "Photo.PNG"), "other-png")
	writeFile(t, filepath.Join(src, "voice.mp3"), "mp3")
	writeFile(t, filepath.Join(src, "chat.html"), "<html/>")
	writeFile(t, filepath.Join(src, "notes.bin"), "bin")

	store := &memAssets{}
	r := NewRegistrar(store, layout, quietLog())
	idx, err := r.Register(context.Background(), "exp1", src, manifest)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(store.assets) != 4 {
		t.Fatalf("expected 4 assets, got %d", len(store.assets))
	}
	if got := idx["photo.png"]; len(got) != 2 {
		t.Errorf("expected 2 assets under photo.png, got %v", got)
	}
	if got := idx.Names(); len(got) != 3 || got[0] != "notes.bin" || got[1] != "photo.png" || got[2] != "voice.mp3" {
		t.Errorf("unexpected index names %v", got)
	}

	// The manifest is not copied, ignored files are copied but not registered.
	if _, err := os.Stat(filepath.Join(layout.ExtractedDir("exp1"), "export", "conversations.json")); !os.IsNotExist(err) {
		t.Error("manifest should not be copied into storage")
	}
	if _, err := os.Stat(filepath.Join(layout.ExtractedDir("exp1"), "chat.html")); err != nil {
		t.Errorf("expected chat.html to be copied: %v", err)
	}

	want := sha256.Sum256([]byte("png-bytes"))
	var found bool
	for _, a := range store.assets {
		if a.StoragePath != "exports/exp1/extracted/export/photo.png" {
			continue
		}
		found = true
		if a.Checksum != hex.EncodeToString(want[:]) {
			t.Errorf("unexpected checksum %s", a.Checksum)
		}
		if a.ByteSize != int64(len("png-bytes")) {
			t.Errorf("expected size %d, got %d", len("png-bytes"), a.ByteSize)
		}
		if a.Kind != model.KindImage {
			t.Errorf("expected image, got %s", a.Kind)
		}
		if a.Linked() {
			t.Error("freshly registered asset should be unlinked")
		}
		if _, err := os.Stat(layout.Abs(a.StoragePath)); err != nil {
			t.Errorf("stored file missing: %v", err)
		}
	}
	if !found {
		t.Error("photo.png asset not registered with expected storage path")
	}
}

func TestRegisterStoreFailureAborts(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.png"), "x")

	r := NewRegistrar(&memAssets{fail: true}, Layout{Root: t.TempDir()}, quietLog())
	if _, err := r.Register(context.Background(), "exp1", src, ""); err == nil {
		t.Fatal("expected error when the store rejects an asset")
	}
}

func TestRegisterUnwritableStorage(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.png"), "x")

	// A regular file where the storage root directory should be.
	root := filepath.Join(t.TempDir(), "root")
	writeFile(t, root, "not a dir")

	r := NewRegistrar(&memAssets{}, Layout{Root: root}, quietLog())
	_, err := r.Register(context.Background(), "exp1", src, "")
	if !errors.Is(err, model.ErrAssetIO) {
		t.Fatalf("expected ErrAssetIO, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	l := Layout{Root: filepath.Join(string(filepath.Separator), "srv", "brain")}

	rel, err := l.Rel(filepath.Join(l.ExtractedDir("e1"), "a", "b.png"))
	if err != nil {
		t.Fatalf("rel: %v", err)
	}
	if rel != "exports/e1/extracted/a/b.png" {
		t.Errorf("unexpected rel %q", rel)
	}
	if got := l.Abs(rel); got != filepath.Join(l.ExtractedDir("e1"), "a", "b.png") {
		t.Errorf("unexpected abs %q", got)
	}
	if _, err := l.Rel(filepath.Join(string(filepath.Separator), "etc", "passwd")); err == nil {
		t.Error("expected error for path outside root")
	}

	moved := Layout{Root: filepath.Join(string(filepath.Separator), "mnt", "brain")}
	if got := moved.Abs(rel); got != filepath.Join(moved.Root, "exports", "e1", "extracted", "a", "b.png") {
		t.Errorf("row path should resolve against a moved root, got %q", got)
	}
}
