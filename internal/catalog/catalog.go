// Package catalog provides the relational catalog: session metadata,
// request-rate rows, and the queryable document index, backed by SQLite.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/sagelabs/sage/pkg/types"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("not found")

// Catalog is a SQLite-backed catalog.
type Catalog struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// Open opens or creates the catalog database at the given path.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	c := &Catalog{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return c, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) newID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		user         TEXT NOT NULL,
		type         TEXT NOT NULL,
		status       TEXT NOT NULL,
		meta         TEXT NOT NULL DEFAULT '{}',
		created_at   TEXT NOT NULL,
		completed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user, type, status);

	CREATE TABLE IF NOT EXISTS document_index (
		user         TEXT NOT NULL,
		path         TEXT NOT NULL,
		type         TEXT NOT NULL,
		domain       TEXT,
		status       TEXT,
		version      INTEGER NOT NULL,
		last_updated TEXT NOT NULL,
		header_json  TEXT NOT NULL,
		PRIMARY KEY (user, path)
	);
	CREATE INDEX IF NOT EXISTS idx_document_index_type ON document_index(user, type);

	CREATE TABLE IF NOT EXISTS request_log (
		id         TEXT PRIMARY KEY,
		user       TEXT NOT NULL,
		session_id TEXT,
		at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_request_log_user ON request_log(user, at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// CreateSession inserts a new active session.
func (c *Catalog) CreateSession(ctx context.Context, user string, typ types.SessionType) (*types.Session, error) {
	if !types.KnownSessionType(typ) {
		return nil, fmt.Errorf("unknown session type %q", typ)
	}

	session := &types.Session{
		ID:        c.newID(),
		User:      user,
		Type:      typ,
		Status:    types.StatusActive,
		CreatedAt: time.Now().UTC(),
	}

	meta, err := json.Marshal(session.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user, type, status, meta, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.User, string(session.Type), string(session.Status),
		string(meta), session.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

// GetSession retrieves a session by id.
func (c *Catalog) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, user, type, status, meta, created_at, completed_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns a user's sessions, newest first.
func (c *Catalog) ListSessions(ctx context.Context, user string) ([]*types.Session, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, user, type, status, meta, created_at, completed_at
		 FROM sessions WHERE user = ? ORDER BY created_at DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// UpdateSession persists a session's status, metadata and completion time.
func (c *Catalog) UpdateSession(ctx context.Context, session *types.Session) error {
	meta, err := json.Marshal(session.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	var completedAt any
	if session.CompletedAt != nil {
		completedAt = session.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := c.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, meta = ?, completed_at = ? WHERE id = ?`,
		string(session.Status), string(meta), completedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*types.Session, error) {
	var s types.Session
	var typ, status, meta, createdAt string
	var completedAt sql.NullString

	err := row.Scan(&s.ID, &s.User, &typ, &status, &meta, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.Type = types.SessionType(typ)
	s.Status = types.SessionStatus(status)

	if err := json.Unmarshal([]byte(meta), &s.Meta); err != nil {
		// A corrupt meta blob degrades to empty metadata rather than
		// making the session unreadable.
		s.Meta = types.SessionMeta{}
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		s.CreatedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			s.CompletedAt = &t
		}
	}

	return &s, nil
}

// UpsertDocument stores or replaces a document index entry. Implements
// the document store's Indexer.
func (c *Catalog) UpsertDocument(ctx context.Context, entry types.IndexEntry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO document_index (user, path, type, domain, status, version, last_updated, header_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user, path) DO UPDATE SET
			type = excluded.type,
			domain = excluded.domain,
			status = excluded.status,
			version = excluded.version,
			last_updated = excluded.last_updated,
			header_json = excluded.header_json`,
		entry.User, entry.Path, string(entry.Type), entry.Domain, entry.Status,
		entry.Version, entry.LastUpdated.UTC().Format(time.RFC3339Nano), entry.HeaderJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert document index: %w", err)
	}
	return nil
}

// ListDocuments returns index entries for a user, optionally filtered by
// family (empty family means all), ordered by path.
func (c *Catalog) ListDocuments(ctx context.Context, user string, family types.Family) ([]types.IndexEntry, error) {
	query := `SELECT user, path, type, domain, status, version, last_updated, header_json
		 FROM document_index WHERE user = ?`
	args := []any{user}
	if family != "" {
		query += ` AND type = ?`
		args = append(args, string(family))
	}
	query += ` ORDER BY path`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var entries []types.IndexEntry
	for rows.Next() {
		var e types.IndexEntry
		var typ, lastUpdated string
		var domain, status sql.NullString
		if err := rows.Scan(&e.User, &e.Path, &typ, &domain, &status, &e.Version, &lastUpdated, &e.HeaderJSON); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}
		e.Type = types.Family(typ)
		e.Domain = domain.String
		e.Status = status.String
		if t, err := time.Parse(time.RFC3339Nano, lastUpdated); err == nil {
			e.LastUpdated = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordRequest logs one incoming request for rate tracking.
func (c *Catalog) RecordRequest(ctx context.Context, user, sessionID string, at time.Time) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO request_log (id, user, session_id, at) VALUES (?, ?, ?, ?)`,
		c.newID(), user, sessionID, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}

// CountRequestsSince returns the user's request count in the window.
func (c *Catalog) CountRequestsSince(ctx context.Context, user string, since time.Time) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_log WHERE user = ? AND at >= ?`,
		user, since.UTC().Format(time.RFC3339Nano),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}
