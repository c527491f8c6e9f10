// Package archive unpacks untrusted zip archives into a working directory.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/malegalny/Brain/internal/model"
)

// Result summarises one extraction.
type Result struct {
	Files   int `json:"files"`
	Dirs    int `json:"dirs"`
	Skipped int `json:"skipped"`
}

// Extract unpacks every safe entry of the archive at zipPath into dest.
// Entries with an absolute path or a ".." segment are skipped and counted,
// never written.
func Extract(ctx context.Context, zipPath, dest string) (Result, error) {
	var res Result

	// ErrInsecurePath still yields a usable reader; such entries are
	// filtered below.
	zr, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return res, fmt.Errorf("%w: open %s: %v", model.ErrExtraction, filepath.Base(zipPath), err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return res, fmt.Errorf("%w: create destination: %v", model.ErrExtraction, err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rel, ok := safePath(f.Name)
		if !ok {
			res.Skipped++
			continue
		}
		target := filepath.Join(dest, rel)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return res, fmt.Errorf("%w: create dir %s: %v", model.ErrExtraction, rel, err)
			}
			res.Dirs++
			continue
		}

		if err := writeEntry(f, target); err != nil {
			return res, fmt.Errorf("%w: entry %s: %v", model.ErrExtraction, rel, err)
		}
		res.Files++
	}

	return res, nil
}

// safePath normalises an entry name and reports whether it stays inside the
// destination. The returned path uses the host separator.
func safePath(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	if filepath.VolumeName(name) != "" || (len(name) > 1 && name[1] == ':') {
		return "", false
	}

	var parts []string
	for _, p := range strings.Split(name, "/") {
		switch p {
		case "..":
			return "", false
		case "", ".":
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", false
	}
	return filepath.Join(parts...), true
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
