package annotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTablesStmt = `
CREATE TABLE IF NOT EXISTS outputs (
	name       TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
	output   TEXT NOT NULL REFERENCES outputs(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	key      TEXT NOT NULL,
	value    TEXT NOT NULL,
	PRIMARY KEY (output, position)
);
CREATE INDEX IF NOT EXISTS annotations_key ON annotations(key);
`

// SQLiteStore keeps records in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	dir := filepath.Dir(p)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createTablesStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure annotation tables: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin annotation tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE output = ?`, rec.Output); err != nil {
		return fmt.Errorf("clear annotations for %s: %w", rec.Output, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outputs(name, digest, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET digest = excluded.digest, created_at = excluded.created_at`,
		rec.Output, rec.Digest, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert output %s: %w", rec.Output, err)
	}
	for i, a := range rec.Annotations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO annotations(output, position, key, value) VALUES(?, ?, ?, ?)`,
			rec.Output, i, a.Key, a.Value); err != nil {
			return fmt.Errorf("insert annotation %s: %w", a.Key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, output string) (Record, error) {
	rec := Record{Output: output}
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM outputs WHERE name = ?`, output).Scan(&rec.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query output %s: %w", output, err)
	}
	if rec.Annotations, err = s.annotations(ctx, output); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) annotations(ctx context.Context, output string) (Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM annotations WHERE output = ? ORDER BY position`, output)
	if err != nil {
		return nil, fmt.Errorf("query annotations for %s: %w", output, err)
	}
	defer rows.Close()
	var out Set
	for rows.Next() {
		var a Annotation
		if err := rows.Scan(&a.Key, &a.Value); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns every record ordered by output name.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, digest FROM outputs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Output, &rec.Digest); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan output: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	// One connection: the outputs cursor must be closed before the
	// per-output queries run.
	for i := range out {
		if out[i].Annotations, err = s.annotations(ctx, out[i].Output); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
