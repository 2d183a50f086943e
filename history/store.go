package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoPath = errors.New("history: database path is required")
	ErrClosed = errors.New("history: store is closed")
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultLimit is the number of runs Recent returns for a non-positive limit.
const DefaultLimit = 20

// Run is one recorded CLI invocation.
type Run struct {
	ID         uuid.UUID
	Command    string // e.g. "gray", "run binarize.yaml"
	Input      string
	Output     string
	Width      int
	Height     int
	Channels   int
	DurationMS int64
	Status     string // StatusSuccess or StatusError
	Error      string
	CreatedAt  time.Time
}

// Store persists runs.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at path and applies the schema. The
// parent directory is created if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	if err := migrateUp(path); err != nil {
		return nil, err
	}
	db, err := openSQLite(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Record stores r and returns it with its ID, status and timestamp filled in.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Run{}, ErrClosed
	}
	if r.Command == "" {
		return Run{}, errors.New("history: run command is required")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if r.Status == "" {
		r.Status = StatusSuccess
		if r.Error != "" {
			r.Status = StatusError
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, command, input, output, width, height, channels,
			duration_ms, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Command, r.Input, r.Output, r.Width, r.Height, r.Channels,
		r.DurationMS, r.Status, r.Error, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("history: insert run: %w", err)
	}
	return r, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, input, output, width, height, channels,
			duration_ms, status, error, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			id      string
			created int64
		)
		if err := rows.Scan(&id, &r.Command, &r.Input, &r.Output, &r.Width, &r.Height, &r.Channels,
			&r.DurationMS, &r.Status, &r.Error, &created); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("history: run id %q: %w", id, err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("history: prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database. Repeated calls do nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
