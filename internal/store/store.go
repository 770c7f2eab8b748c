// Package store records measurement runs in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    created_ns      INTEGER NOT NULL,
    mode            TEXT NOT NULL,
    cipher          TEXT NOT NULL,
    key_bytes       INTEGER NOT NULL,
    plaintext_bytes INTEGER NOT NULL,
    drop_count      INTEGER NOT NULL,
    seed            INTEGER NOT NULL,
    iterations      INTEGER NOT NULL,
    mean            REAL NOT NULL,
    stddev          REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
    run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    ordinal     INTEGER NOT NULL,
    percent     REAL NOT NULL,
    PRIMARY KEY (run_id, ordinal)
);
`

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one stored harness run. Key material is never stored, only its size.
type Run struct {
	ID             int64
	CreatedAt      time.Time
	Mode           string
	Cipher         string
	KeyBytes       int
	PlaintextBytes int
	Drop           int
	Seed           uint64
	Iterations     int
	Mean           float64
	StdDev         float64
}

// Store is the SQLite run store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun inserts run and its per-trial percentages and returns the new id.
func (s *Store) SaveRun(run *Run, trials []float64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := tx.Exec(`
		INSERT INTO runs (created_ns, mode, cipher, key_bytes, plaintext_bytes, drop_count, seed, iterations, mean, stddev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.UnixNano(), run.Mode, run.Cipher, run.KeyBytes, run.PlaintextBytes, run.Drop, int64(run.Seed), run.Iterations, run.Mean, run.StdDev,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trials (run_id, ordinal, percent) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()
	for i, p := range trials {
		if _, err := stmt.Exec(id, i, p); err != nil {
			return 0, fmt.Errorf("insert trial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	run.ID = id
	run.CreatedAt = time.Unix(0, created.UnixNano())
	return id, nil
}

const runColumns = `id, created_ns, mode, cipher, key_bytes, plaintext_bytes, drop_count, seed, iterations, mean, stddev`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var created, seed int64
	if err := row.Scan(&r.ID, &created, &r.Mode, &r.Cipher, &r.KeyBytes, &r.PlaintextBytes, &r.Drop, &seed, &r.Iterations, &r.Mean, &r.StdDev); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created)
	r.Seed = uint64(seed)
	return &r, nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first, at most limit of them.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Trials returns the percentages of a run in trial order.
func (s *Store) Trials(runID int64) ([]float64, error) {
	rows, err := s.db.Query(`SELECT percent FROM trials WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("get trials: %w", err)
	}
	defer rows.Close()

	trials := []float64{}
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		trials = append(trials, p)
	}
	return trials, rows.Err()
}
