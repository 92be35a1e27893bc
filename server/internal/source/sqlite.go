package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// Schema creates the deliveries table read by the sqlite source. day holds
// the YYYY-MM-DD string and count is left untyped, mirroring the document
// store.
const Schema = `CREATE TABLE IF NOT EXISTS deliveries (
	team_id TEXT NOT NULL,
	day     TEXT NOT NULL,
	driver  TEXT NOT NULL,
	count,
	PRIMARY KEY (team_id, day, driver)
)`

// SQLite reads team documents from a deliveries table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn with the modernc.org/sqlite driver and ensures the
// deliveries table exists.
func OpenSQLite(dsn string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("source sqlite: dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("source sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source sqlite: ping: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source sqlite: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Name implements Source.
func (s *SQLite) Name() string { return "sqlite" }

// Fetch implements Source.
func (s *SQLite) Fetch(ctx context.Context) ([]types.TeamDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, day, driver, count FROM deliveries ORDER BY team_id, day, driver`)
	if err != nil {
		return nil, fmt.Errorf("source sqlite: query: %w", err)
	}
	defer rows.Close()

	w := wire{}
	for rows.Next() {
		var (
			team, day, driver string
			count             any
		)
		if err := rows.Scan(&team, &day, &driver, &count); err != nil {
			return nil, fmt.Errorf("source sqlite: scan: %w", err)
		}
		days, ok := w[team]
		if !ok {
			days = map[string]map[string]any{}
			w[team] = days
		}
		drivers, ok := days[day]
		if !ok {
			drivers = map[string]any{}
			days[day] = drivers
		}
		drivers[driver] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source sqlite: rows: %w", err)
	}
	return w.documents(), nil
}

// Import upserts every (team, day, driver) count from docs in a single
// transaction.
func (s *SQLite) Import(ctx context.Context, docs []types.TeamDocument) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("source sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO deliveries (team_id, day, driver, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (team_id, day, driver) DO UPDATE SET count = excluded.count`)
	if err != nil {
		return 0, fmt.Errorf("source sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	var n int
	for _, d := range docs {
		for day, drivers := range d.Days {
			for driver, count := range drivers {
				if _, err := stmt.ExecContext(ctx, d.ID, day, driver, sqlValue(count)); err != nil {
					return n, fmt.Errorf("source sqlite: insert %s/%s/%s: %w", d.ID, day, driver, err)
				}
				n++
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("source sqlite: commit: %w", err)
	}
	return n, nil
}

// sqlValue maps decoded counts onto types the driver accepts.
func sqlValue(v any) any {
	switch n := v.(type) {
	case nil, int64, float64, string, []byte, bool:
		return n
	case int:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprint(n)
	}
}
