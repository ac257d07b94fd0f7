package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens or creates a plan history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeError("could not open history database", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, storeError("failed to initialize history schema", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		declaration TEXT NOT NULL,
		hash TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		targets TEXT NOT NULL,
		recorded_at INTEGER NOT NULL,
		plan BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plans_declaration ON plans(declaration, id);
	CREATE INDEX IF NOT EXISTS idx_plans_hash ON plans(hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record adds p to the history unless it equals the latest entry for declaration.
func (s *SQLiteStore) Record(ctx context.Context, declaration string, p *plan.BuildPlan) (Entry, bool, error) {
	hash, err := p.Hash()
	if err != nil {
		return Entry{}, false, storeError("failed to hash plan", err)
	}
	data, err := p.Marshal()
	if err != nil {
		return Entry{}, false, storeError("failed to marshal plan", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if latest, err := s.latest(ctx, declaration); err == nil && latest.Hash == hash {
		return latest, false, nil
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return Entry{}, false, err
	}

	e := Entry{
		Declaration: declaration,
		Hash:        hash,
		Fingerprint: p.Source.Fingerprint.String(),
		Targets:     p.Targets(),
		RecordedAt:  s.now().UTC().Truncate(time.Second),
		Plan:        p,
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO plans (declaration, hash, fingerprint, targets, recorded_at, plan) VALUES (?, ?, ?, ?, ?, ?)",
		e.Declaration, e.Hash, e.Fingerprint, strings.Join(e.Targets, ","), e.RecordedAt.Unix(), data,
	)
	if err != nil {
		return Entry{}, false, storeError("failed to record plan", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, false, storeError("failed to read plan id", err)
	}
	return e, true, nil
}

// Latest returns the most recent entry for declaration.
func (s *SQLiteStore) Latest(ctx context.Context, declaration string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(ctx, declaration)
}

func (s *SQLiteStore) latest(ctx context.Context, declaration string) (Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectPlans+" WHERE declaration = ? ORDER BY id DESC LIMIT 1", declaration)
	if err != nil {
		return Entry{}, storeError("failed to query history", err)
	}
	defer rows.Close()
	return s.one(rows)
}

// List returns up to limit entries, newest first. limit <= 0 returns all entries.
func (s *SQLiteStore) List(ctx context.Context, declaration string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectPlans
	var args []any
	if declaration != "" {
		query += " WHERE declaration = ?"
		args = append(args, declaration)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("failed to query history", err)
	}
	defer rows.Close()
	return s.scanEntries(rows)
}

// ByHash returns the newest entry recorded with hash.
func (s *SQLiteStore) ByHash(ctx context.Context, hash string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectPlans+" WHERE hash = ? ORDER BY id DESC LIMIT 1", hash)
	if err != nil {
		return Entry{}, storeError("failed to query history", err)
	}
	defer rows.Close()
	return s.one(rows)
}

const selectPlans = "SELECT id, declaration, hash, fingerprint, targets, recorded_at, plan FROM plans"

func (s *SQLiteStore) one(rows *sql.Rows) (Entry, error) {
	entries, err := s.scanEntries(rows)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

func (s *SQLiteStore) scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			targets    string
			recordedAt int64
			data       []byte
		)
		if err := rows.Scan(&e.ID, &e.Declaration, &e.Hash, &e.Fingerprint, &targets, &recordedAt, &data); err != nil {
			return nil, storeError("failed to scan history rows", err)
		}
		if targets != "" {
			e.Targets = strings.Split(targets, ",")
		}
		e.RecordedAt = time.Unix(recordedAt, 0).UTC()
		p, err := plan.Decode(data)
		if err != nil {
			return nil, storeError("failed to decode recorded plan", err).WithContext("id", e.ID)
		}
		e.Plan = p
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to iterate history rows", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
