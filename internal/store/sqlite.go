package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/malegalny/Brain/internal/model"
	"github.com/malegalny/Brain/internal/store/migrations"
)

// Compile-time check: *SQLiteStore must satisfy Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path and
// applies pending migrations.
func NewSQLiteStore(dbPath string, log *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		log:     log,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewID returns a fresh sortable row id.
func (s *SQLiteStore) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}
		s.log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		s.log.Debug("all migrations already applied")
	}
	return nil
}

func (s *SQLiteStore) CreateExport(ctx context.Context, p CreateExportParams) (*model.Export, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, model.Invalid("export name is required")
	}
	id := p.ID
	if id == "" {
		id = s.NewID()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, name, created_at, status, source_zip_path) VALUES (?, ?, ?, ?, ?)`,
		id, p.Name, now.Format(timeLayout), model.StatusUploaded, p.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}

	return &model.Export{
		ID:         id,
		Name:       p.Name,
		CreatedAt:  now,
		Status:     model.StatusUploaded,
		SourcePath: p.SourcePath,
	}, nil
}

func (s *SQLiteStore) GetExport(ctx context.Context, id string) (*model.Export, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, status, source_zip_path, error_message FROM exports WHERE id = ?`, id)
	e, err := scanExport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrExportNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) ListExports(ctx context.Context) ([]model.Export, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, status, source_zip_path, error_message
		 FROM exports ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []model.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status model.ExportStatus, errMsg string) error {
	if !model.ValidStatuses[status] {
		return model.Invalid("unknown export status %q", status)
	}

	var res sql.Result
	var err error
	switch status {
	case model.StatusFailed:
		res, err = s.db.ExecContext(ctx,
			`UPDATE exports SET status = ?, error_message = ? WHERE id = ?`, status, errMsg, id)
	case model.StatusReady:
		res, err = s.db.ExecContext(ctx,
			`UPDATE exports SET status = ?, error_message = NULL WHERE id = ?`, status, id)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE exports SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", model.ErrExportNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) AddConversation(ctx context.Context, p AddConversationParams) (*model.Conversation, []model.Message, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:               s.NewID(),
		ExportID:         p.ExportID,
		ExternalID:       p.ExternalID,
		Title:            p.Title,
		ConversationDate: p.Date,
		RawJSON:          p.RawJSON,
		CreatedAt:        now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, export_id, external_id, title, conversation_date, raw_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.ExportID, nullString(p.ExternalID), conv.Title,
		formatTime(p.Date), p.RawJSON, now.Format(timeLayout))
	if err != nil {
		return nil, nil, fmt.Errorf("insert conversation: %w", err)
	}

	msgs := make([]model.Message, 0, len(p.Messages))
	for i, m := range p.Messages {
		msg := model.Message{
			ID:             s.NewID(),
			ExportID:       p.ExportID,
			ConversationID: conv.ID,
			Seq:            i,
			Role:           m.Role,
			Text:           m.Text,
			CreatedAt:      m.CreatedAt,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, export_id, conversation_id, seq, role, content_text, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ExportID, msg.ConversationID, msg.Seq, msg.Role, msg.Text, formatTime(m.CreatedAt))
		if err != nil {
			return nil, nil, fmt.Errorf("insert message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

func (s *SQLiteStore) AddAsset(ctx context.Context, a model.Asset) (*model.Asset, error) {
	now := time.Now().UTC()
	a.ID = s.NewID()
	a.ConversationID, a.MessageID = "", ""
	a.CreatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, export_id, conversation_id, message_id, asset_type, original_name,
		                     storage_path, byte_size, checksum_sha256, created_at)
		 VALUES (?, ?, NULL, NULL, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ExportID, a.Kind, a.OriginalName, a.StoragePath, a.ByteSize, a.Checksum, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) LinkAsset(ctx context.Context, assetID, conversationID, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE assets SET conversation_id = COALESCE(conversation_id, ?), message_id = COALESCE(message_id, ?)
		 WHERE id = ?`, conversationID, messageID, assetID)
	if err != nil {
		return fmt.Errorf("link asset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExport(row scanner) (model.Export, error) {
	var e model.Export
	var createdAt, status string
	var errMsg sql.NullString

	if err := row.Scan(&e.ID, &e.Name, &createdAt, &status, &e.SourcePath, &errMsg); err != nil {
		return e, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.Status = model.ExportStatus(status)
	if errMsg.Valid {
		e.ErrorMessage = errMsg.String
	}
	return e, nil
}

func scanConversation(row scanner) (model.Conversation, error) {
	var c model.Conversation
	var externalID, date, raw sql.NullString
	var createdAt string

	if err := row.Scan(&c.ID, &c.ExportID, &externalID, &c.Title, &date, &raw, &createdAt); err != nil {
		return c, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if externalID.Valid {
		c.ExternalID = externalID.String
	}
	c.ConversationDate = parseTime(date)
	if raw.Valid {
		c.RawJSON = raw.String
	}
	return c, nil
}

func scanMessage(row scanner) (model.Message, error) {
	var m model.Message
	var createdAt sql.NullString

	if err := row.Scan(&m.ID, &m.ExportID, &m.ConversationID, &m.Seq, &m.Role, &m.Text, &createdAt); err != nil {
		return m, err
	}
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func scanAsset(row scanner) (model.Asset, error) {
	var a model.Asset
	var convID, msgID sql.NullString
	var kind, createdAt string

	err := row.Scan(&a.ID, &a.ExportID, &convID, &msgID, &kind, &a.OriginalName,
		&a.StoragePath, &a.ByteSize, &a.Checksum, &createdAt)
	if err != nil {
		return a, err
	}
	a.Kind = model.AssetKind(kind)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if convID.Valid {
		a.ConversationID = convID.String
	}
	if msgID.Valid {
		a.MessageID = msgID.String
	}
	return a, nil
}

func scanCategory(row scanner, withCount bool) (model.Category, error) {
	var c model.Category
	var isSystem int
	var createdAt string

	dest := []interface{}{&c.ID, &c.ExportID, &c.Name, &c.Slug, &isSystem, &createdAt}
	if withCount {
		dest = append(dest, &c.Count)
	}
	if err := row.Scan(dest...); err != nil {
		return c, err
	}
	c.IsSystem = isSystem != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return c, nil
}

// timeLayout is fixed width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime stores optional manifest timestamps with sub-second precision.
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
