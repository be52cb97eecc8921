// internal/store/sqlite.go
//
// SQLite-backed high-score ledger.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations from sql/*.sql (idempotent, recorded in _migrations).
//   - Record/Top queries for the ledger.

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrations embed.FS

// SQLStore implements Store on a *sql.DB.
type SQLStore struct{ db *sql.DB }

// NewSQLStore wraps an already-migrated database.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// OpenSQLite opens (and creates if missing) a SQLite database file and
// applies migrations.
func OpenSQLite(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// migrate applies each embedded sql/*.sql file once, in lexical order, inside
// its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// Record upserts the player's row, keeping the higher score.
func (s *SQLStore) Record(ctx context.Context, e Entry) error {
	e, err := normalize(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO high_scores (name, score, level, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            score = excluded.score, level = excluded.level, created_at = excluded.created_at
        WHERE excluded.score > high_scores.score`,
		e.Name, e.Score, e.Level, e.At.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert high score: %w", err)
	}
	return nil
}

// Top fetches the best entries, highest score first, ties by age.
func (s *SQLStore) Top(ctx context.Context, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, score, level, created_at
        FROM high_scores
        ORDER BY score DESC, created_at ASC, name ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query high scores: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.Name, &e.Score, &e.Level, &created); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
