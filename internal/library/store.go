package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// ErrIndexClosed is returned by queries against a closed store.
var ErrIndexClosed = errors.New("video index closed")

// Store provides SQLite persistence for the video index.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the index database at dbPath.
// WAL mode and busy_timeout keep readers from blocking on a running scan.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		path TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		filename TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		scan_time INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_videos_mod_time ON videos(mod_time DESC);
	CREATE INDEX IF NOT EXISTS idx_videos_root ON videos(root);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginTx starts a transaction for a scan.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapClosed(err)
	}
	return tx, nil
}

// UpsertVideo inserts or refreshes one row inside a scan transaction.
// A cached duration survives the upsert unless the file changed.
func (s *Store) UpsertVideo(ctx context.Context, tx *sql.Tx, v Video, scanTime time.Time) error {
	query := `
	INSERT INTO videos (path, root, filename, size_bytes, mod_time, scan_time, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT(path) DO UPDATE SET
		root = excluded.root,
		filename = excluded.filename,
		duration_ms = CASE
			WHEN videos.mod_time = excluded.mod_time AND videos.size_bytes = excluded.size_bytes
			THEN videos.duration_ms ELSE 0 END,
		size_bytes = excluded.size_bytes,
		mod_time = excluded.mod_time,
		scan_time = excluded.scan_time
	`
	_, err := tx.ExecContext(ctx, query,
		v.Path, v.Root, v.Filename, v.SizeBytes, v.ModTime.UnixNano(), scanTime.UnixNano())
	return err
}

// PruneRoot deletes rows of root that were not touched by the scan at scanTime.
func (s *Store) PruneRoot(ctx context.Context, tx *sql.Tx, root string, scanTime time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE root = ? AND scan_time <> ?`, root, scanTime.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ForgetRoot deletes every row belonging to root.
func (s *Store) ForgetRoot(ctx context.Context, tx *sql.Tx, root string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE root = ?`, root)
	return err
}

// ForgetOtherRoots deletes rows whose root is not in roots, so a root
// dropped from the configuration stops being served.
func (s *Store) ForgetOtherRoots(ctx context.Context, tx *sql.Tx, roots []string) (int64, error) {
	query := `DELETE FROM videos`
	args := make([]any, 0, len(roots))
	if len(roots) > 0 {
		query += ` WHERE root NOT IN (?` + strings.Repeat(`, ?`, len(roots)-1) + `)`
		for _, r := range roots {
			args = append(args, r)
		}
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Paths returns every indexed path, newest modification first.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM videos ORDER BY mod_time DESC, path ASC`)
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Get returns the row for path. ok is false when the path is not indexed.
func (s *Store) Get(ctx context.Context, path string) (v Video, ok bool, err error) {
	var modNanos int64
	err = s.db.QueryRowContext(ctx,
		`SELECT path, root, filename, size_bytes, mod_time, duration_ms FROM videos WHERE path = ?`, path,
	).Scan(&v.Path, &v.Root, &v.Filename, &v.SizeBytes, &modNanos, &v.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Video{}, false, nil
	}
	if err != nil {
		return Video{}, false, wrapClosed(err)
	}
	v.ModTime = time.Unix(0, modNanos)
	return v, true, nil
}

// SetDuration caches a probed duration for path.
func (s *Store) SetDuration(ctx context.Context, path string, ms int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE videos SET duration_ms = ? WHERE path = ?`, ms, path)
	return wrapClosed(err)
}

// Count returns the number of indexed videos.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	return n, wrapClosed(err)
}

func wrapClosed(err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return fmt.Errorf("%w: %v", ErrIndexClosed, err)
	}
	return err
}
