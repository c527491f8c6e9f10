// Package ingest runs the export pipeline: extract the archive, register
// its files, normalize the manifest, link assets and categorize.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/malegalny/Brain/internal/archive"
	"github.com/malegalny/Brain/internal/asset"
	"github.com/malegalny/Brain/internal/categorize"
	"github.com/malegalny/Brain/internal/linker"
	"github.com/malegalny/Brain/internal/manifest"
	"github.com/malegalny/Brain/internal/metrics"
	"github.com/malegalny/Brain/internal/model"
	"github.com/malegalny/Brain/internal/store"
)

// exportStore is the persistence the pipeline needs.
type exportStore interface {
	NewID() string
	CreateExport(ctx context.Context, p store.CreateExportParams) (*model.Export, error)
	GetExport(ctx context.Context, id string) (*model.Export, error)
	SetStatus(ctx context.Context, id string, status model.ExportStatus, errMsg string) error
	AddConversation(ctx context.Context, p store.AddConversationParams) (*model.Conversation, []model.Message, error)
	AddAsset(ctx context.Context, a model.Asset) (*model.Asset, error)
	LinkAsset(ctx context.Context, assetID, conversationID, messageID string) error
	EnsureCategory(ctx context.Context, exportID, name string, system bool) (*model.Category, error)
	AssignCategory(ctx context.Context, conversationID, categoryID, source string, confidence *float64) error
}

// Report summarises one finished ingestion.
type Report struct {
	ExportID      string         `json:"export_id"`
	Status        string         `json:"status"`
	Conversations int            `json:"conversations"`
	Messages      int            `json:"messages"`
	Assets        int            `json:"assets"`
	Linked        int            `json:"linked_assets"`
	Skipped       int            `json:"skipped_entries"`
	Categories    map[string]int `json:"categories"`
	Duration      time.Duration  `json:"duration_ns"`
}

// Service runs ingestions against one store and storage root.
type Service struct {
	store  exportStore
	layout asset.Layout
	rules  categorize.Rules
	log    *logrus.Logger

	// TempDir is the parent of per-run workspaces. Empty means os.TempDir.
	TempDir string
}

// New creates a Service.
func New(s exportStore, layout asset.Layout, rules categorize.Rules, log *logrus.Logger) *Service {
	return &Service{store: s, layout: layout, rules: rules, log: log}
}

// Ingest submits the archive and runs the pipeline on it.
func (s *Service) Ingest(ctx context.Context, name, archivePath string) (*Report, error) {
	e, err := s.Submit(ctx, name, archivePath)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, e.ID)
}

// Submit copies the archive into the export's storage subtree and creates
// the export in the uploaded state.
func (s *Service) Submit(ctx context.Context, name, archivePath string) (*model.Export, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("export name is required")
	}
	if !strings.EqualFold(filepath.Ext(archivePath), ".zip") {
		return nil, model.Invalid("only .zip archives are supported: %s", filepath.Base(archivePath))
	}

	id := s.store.NewID()
	dst := s.layout.SourceArchive(id)
	if err := copyArchive(archivePath, dst); err != nil {
		os.RemoveAll(s.layout.ExportDir(id))
		return nil, fmt.Errorf("store archive: %w", err)
	}
	rel, err := s.layout.Rel(dst)
	if err != nil {
		return nil, err
	}

	e, err := s.store.CreateExport(ctx, store.CreateExportParams{ID: id, Name: name, SourcePath: rel})
	if err != nil {
		os.RemoveAll(s.layout.ExportDir(id))
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"export_id": e.ID,
		"name":      e.Name,
		"source":    rel,
	}).Info("export submitted")
	return e, nil
}

// Run moves the export through processing to ready or failed. A failure is
// recorded on the export verbatim and returned.
func (s *Service) Run(ctx context.Context, exportID string) (*Report, error) {
	e, err := s.store.GetExport(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetStatus(ctx, exportID, model.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	start := time.Now()
	logger := s.log.WithField("export_id", exportID)
	logger.Info("ingestion started")

	rep := &Report{ExportID: exportID, Categories: map[string]int{}}
	runErr := s.run(ctx, e, rep, logger)
	rep.Duration = time.Since(start)
	metrics.IngestDuration.Observe(rep.Duration.Seconds())

	if runErr != nil {
		rep.Status = string(model.StatusFailed)
		metrics.IngestionsTotal.WithLabelValues(rep.Status).Inc()
		if err := s.store.SetStatus(context.WithoutCancel(ctx), exportID, model.StatusFailed, runErr.Error()); err != nil {
			logger.WithError(err).Error("recording failure")
		}
		logger.WithError(runErr).WithField("duration", rep.Duration).Error("ingestion failed")
		return rep, runErr
	}

	if err := s.store.SetStatus(ctx, exportID, model.StatusReady, ""); err != nil {
		return rep, fmt.Errorf("mark ready: %w", err)
	}
	rep.Status = string(model.StatusReady)
	metrics.IngestionsTotal.WithLabelValues(rep.Status).Inc()

	logger.WithFields(logrus.Fields{
		"conversations": rep.Conversations,
		"messages":      rep.Messages,
		"assets":        rep.Assets,
		"linked":        rep.Linked,
		"skipped":       rep.Skipped,
		"duration":      rep.Duration,
	}).Info("ingestion finished")
	return rep, nil
}

func (s *Service) run(ctx context.Context, e *model.Export, rep *Report, logger *logrus.Entry) error {
	work, err := os.MkdirTemp(s.TempDir, "brain-ingest-")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(work)

	res, err := archive.Extract(ctx, s.layout.Abs(e.SourcePath), work)
	if err != nil {
		return err
	}
	rep.Skipped = res.Skipped
	if res.Skipped > 0 {
		metrics.SkippedEntriesTotal.Add(float64(res.Skipped))
		logger.WithField("skipped", res.Skipped).Warn("archive entries outside destination skipped")
	}

	manifestPath, err := manifest.Locate(work)
	if err != nil {
		return err
	}
	records, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	idx, err := asset.NewRegistrar(s.store, s.layout, s.log).Register(ctx, e.ID, work, manifestPath)
	if err != nil {
		return err
	}
	for _, ids := range idx {
		rep.Assets += len(ids)
	}

	// Normalize everything before writing so a malformed record fails the
	// export without leaving conversations behind.
	convs := make([]manifest.Conversation, 0, len(records))
	for i, rec := range records {
		c, err := manifest.Normalize(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		convs = append(convs, c)
	}

	lnk := linker.New(s.store, idx)
	cat := categorize.New(s.store, s.rules)
	for _, c := range convs {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := store.AddConversationParams{
			ExportID:   e.ID,
			ExternalID: c.ExternalID,
			Title:      c.Title,
			Date:       c.Date,
			RawJSON:    c.Raw,
		}
		for _, m := range c.Messages {
			p.Messages = append(p.Messages, store.AddMessageParams{Role: m.Role, Text: m.Text, CreatedAt: m.CreatedAt})
		}
		conv, msgs, err := s.store.AddConversation(ctx, p)
		if err != nil {
			return fmt.Errorf("store conversation %q: %w", c.Title, err)
		}
		rep.Conversations++
		rep.Messages += len(msgs)
		metrics.ConversationsTotal.Inc()
		metrics.MessagesTotal.Add(float64(len(msgs)))

		n, err := lnk.LinkMessages(ctx, conv.ID, msgs)
		if err != nil {
			return err
		}
		rep.Linked += n

		names, err := cat.Categorize(ctx, e.ID, conv.ID, c.Blob())
		if err != nil {
			return err
		}
		for _, name := range names {
			rep.Categories[name]++
		}
	}
	return nil
}

func copyArchive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
