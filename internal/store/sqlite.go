package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open %q", s.path)
	}
	// SQLite allows a single writer; concurrent samplers queue on one connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping %q", s.path)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, payload)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, run.ID, payload)
	return errors.Wrapf(err, "save run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, errors.Wrapf(err, "get run %s", id)
	}
	run, err := decodeRun(payload)
	if err != nil {
		return Run{}, false, errors.Wrapf(err, "run %s", id)
	}
	return run, true, nil
}

func (s *SQLiteStore) SaveSample(ctx context.Context, sample Sample) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := encode(sample)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO samples (run_id, batch, element, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, batch, element) DO UPDATE SET payload = excluded.payload
	`, sample.RunID, sample.Batch, sample.Element, payload)
	return errors.Wrapf(err, "save sample %s/%d/%d", sample.RunID, sample.Batch, sample.Element)
}

func (s *SQLiteStore) ListSamples(ctx context.Context, runID string) ([]Sample, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM samples WHERE run_id = ? ORDER BY batch, element
	`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "list samples of %s", runID)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrapf(err, "scan sample of %s", runID)
		}
		sample, err := decodeSample(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, errors.Wrapf(rows.Err(), "list samples of %s", runID)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id),
			batch INTEGER NOT NULL,
			element INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, batch, element)
		);
	`)
	return err
}
