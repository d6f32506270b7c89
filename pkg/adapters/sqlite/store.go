package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/variables"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

// Revision is one saved version of a key. Deleted revisions are tombstones.
type Revision struct {
	ID        string
	Key       string
	CreatedAt time.Time
	Deleted   bool
	Snapshot  domain.Snapshot
}

// Store implements ports.SnapshotStore on SQLite.
// Every Save appends a revision identified by a ULID, so older saves stay readable
// through History and Revision.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp revisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New opens or creates a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Store, error) {
	dsn := dbPath
	if dbPath != Memory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshot_revisions (
		id         TEXT PRIMARY KEY,
		key        TEXT NOT NULL,
		body       TEXT,
		deleted    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshot_revisions_key ON snapshot_revisions(key, id DESC);
	`)
	return err
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()).String()
}

func (s *Store) insert(ctx context.Context, key string, body sql.NullString, deleted bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshot_revisions (id, key, body, deleted, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.newID(), key, body, deleted, s.now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Save appends a new revision for key.
func (s *Store) Save(ctx context.Context, key string, snap domain.Snapshot) error {
	data, err := variables.EncodeJSON(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.insert(ctx, key, sql.NullString{String: string(data), Valid: true}, false); err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

// Load returns the latest revision of key.
func (s *Store) Load(ctx context.Context, key string) (domain.Snapshot, error) {
	var body sql.NullString
	var deleted bool
	err := s.db.QueryRowContext(ctx,
		`SELECT body, deleted FROM snapshot_revisions WHERE key = ? ORDER BY id DESC LIMIT 1`, key,
	).Scan(&body, &deleted)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && deleted) {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return decodeBody(key, body)
}

// Delete records a tombstone; History still shows the earlier revisions.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.insert(ctx, key, sql.NullString{}, true); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", key, err)
	}
	return nil
}

// List returns keys whose latest revision is not a tombstone.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT r.key FROM snapshot_revisions r
	WHERE r.id = (SELECT MAX(id) FROM snapshot_revisions WHERE key = r.key)
	  AND r.deleted = 0
	ORDER BY r.key`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// History returns every revision of key, newest first.
func (s *Store) History(ctx context.Context, key string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, body, deleted, created_at FROM snapshot_revisions WHERE key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("history %q: %w", key, err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

// Revision returns a single revision by id.
func (s *Store) Revision(ctx context.Context, id string) (Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, key, body, deleted, created_at FROM snapshot_revisions WHERE id = ?`, id)
	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, domain.ErrSnapshotNotFound
	}
	return rev, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (Revision, error) {
	var (
		rev     Revision
		body    sql.NullString
		created string
	)
	if err := row.Scan(&rev.ID, &rev.Key, &body, &rev.Deleted, &created); err != nil {
		return Revision{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Revision{}, fmt.Errorf("parse revision time %q: %w", created, err)
	}
	rev.CreatedAt = t
	if !rev.Deleted {
		snap, err := decodeBody(rev.Key, body)
		if err != nil {
			return Revision{}, err
		}
		rev.Snapshot = snap
	}
	return rev, nil
}

func decodeBody(key string, body sql.NullString) (domain.Snapshot, error) {
	if !body.Valid {
		return domain.Snapshot{}, fmt.Errorf("snapshot %q has no body", key)
	}
	snap, err := variables.DecodeJSON([]byte(body.String))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %q: %w", key, err)
	}
	return snap, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
