// Package history stores grid-search run results in SQLite so repeated
// sweeps can be compared across invocations, grounded on the teacher's
// SQLite storage layer (internal/store) but with a far smaller schema: a
// single run table instead of a full memory/fact/FTS schema.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one grid-search trial: a parameter combination and the recall/
// latency/distance-count numbers it produced (spec §6 "grid search over
// M, efConstruction, efSearch"; SPEC_FULL §"Domain Stack").
type Run struct {
	ID             int64
	Dataset        string
	M              int
	EfConstruction int
	EfSearch       int
	N              int
	Dim            int
	RecallAt10     float64
	AvgQueryMicros float64
	DistanceCount  int64
	BuildSeconds   float64
	CreatedAt      time.Time
}

// Store is the SQLite-backed run history, mirroring the single-file
// embedded-database approach cortex's own store package uses.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path and
// runs its bootstrap migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset          TEXT NOT NULL,
			m                INTEGER NOT NULL,
			ef_construction  INTEGER NOT NULL,
			ef_search        INTEGER NOT NULL,
			n                INTEGER NOT NULL,
			dim              INTEGER NOT NULL,
			recall_at_10     REAL NOT NULL,
			avg_query_micros REAL NOT NULL,
			distance_count   INTEGER NOT NULL,
			build_seconds    REAL NOT NULL,
			created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_params ON runs(m, ef_construction, ef_search)`,
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: beginning migration: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("history: executing migration: %w", err)
		}
	}
	return tx.Commit()
}

// Insert records one grid-search trial.
func (s *Store) Insert(r Run) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (dataset, m, ef_construction, ef_search, n, dim, recall_at_10, avg_query_micros, distance_count, build_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Dataset, r.M, r.EfConstruction, r.EfSearch, r.N, r.Dim, r.RecallAt10, r.AvgQueryMicros, r.DistanceCount, r.BuildSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("history: inserting run: %w", err)
	}
	return res.LastInsertId()
}

// Best returns the run with the highest recall@10 for a dataset, breaking
// ties by lower average query latency.
func (s *Store) Best(dataset string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT id, dataset, m, ef_construction, ef_search, n, dim, recall_at_10, avg_query_micros, distance_count, build_seconds, created_at
		 FROM runs WHERE dataset = ?
		 ORDER BY recall_at_10 DESC, avg_query_micros ASC
		 LIMIT 1`,
		dataset,
	)
	return scanRun(row)
}

// Recent returns the last n runs for a dataset, most recent first.
func (s *Store) Recent(dataset string, n int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, dataset, m, ef_construction, ef_search, n, dim, recall_at_10, avg_query_micros, distance_count, build_seconds, created_at
		 FROM runs WHERE dataset = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		dataset, n,
	)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Dataset, &r.M, &r.EfConstruction, &r.EfSearch, &r.N, &r.Dim,
		&r.RecallAt10, &r.AvgQueryMicros, &r.DistanceCount, &r.BuildSeconds, &r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("history: scanning run: %w", err)
	}
	return r, nil
}

func scanRunRows(rows *sql.Rows) (Run, error) {
	return scanRun(rows)
}
