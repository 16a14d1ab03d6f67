package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
)

// Scanner walks library roots and indexes video files.
type Scanner struct {
	store *Store
	now   func() time.Time
}

// NewScanner creates a filesystem scanner writing into store.
func NewScanner(store *Store) *Scanner {
	return &Scanner{store: store, now: time.Now}
}

// Scan walks every root and replaces the index contents for those roots in
// a single transaction. A root refused with a permission error has its rows
// removed and is reported in DeniedRoots; when every root is refused Scan
// returns an error wrapping ErrPermissionDenied. Missing roots are treated
// as empty, and rows of roots no longer passed in are dropped.
func (sc *Scanner) Scan(ctx context.Context, roots []string) (ScanResult, error) {
	logger := xlog.WithComponent("library")
	scanTime := sc.now()
	result := ScanResult{Started: scanTime}

	tx, err := sc.store.BeginTx(ctx)
	if err != nil {
		return result, fmt.Errorf("begin scan: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = filepath.Clean(root)
		cleaned = append(cleaned, root)

		info, err := os.Stat(root)
		switch {
		case errors.Is(err, fs.ErrPermission):
			result.DeniedRoots = append(result.DeniedRoots, root)
			if err := sc.store.ForgetRoot(ctx, tx, root); err != nil {
				return result, fmt.Errorf("forget root %s: %w", root, err)
			}
			logger.Warn().Str("root", root).Msg("permission denied")
			continue
		case errors.Is(err, fs.ErrNotExist):
			result.MissingRoots = append(result.MissingRoots, root)
			if err := sc.store.ForgetRoot(ctx, tx, root); err != nil {
				return result, fmt.Errorf("forget root %s: %w", root, err)
			}
			logger.Warn().Str("root", root).Msg("root does not exist")
			continue
		case err != nil:
			return result, fmt.Errorf("stat root %s: %w", root, err)
		case !info.IsDir():
			return result, fmt.Errorf("root %s is not a directory", root)
		}

		// A directory may stat fine yet refuse listing.
		if _, err := os.ReadDir(root); errors.Is(err, fs.ErrPermission) {
			result.DeniedRoots = append(result.DeniedRoots, root)
			if err := sc.store.ForgetRoot(ctx, tx, root); err != nil {
				return result, fmt.Errorf("forget root %s: %w", root, err)
			}
			logger.Warn().Str("root", root).Msg("permission denied")
			continue
		}

		if err := sc.walkRoot(ctx, tx, root, scanTime, &result); err != nil {
			return result, err
		}

		pruned, err := sc.store.PruneRoot(ctx, tx, root, scanTime)
		if err != nil {
			return result, fmt.Errorf("prune root %s: %w", root, err)
		}
		result.Pruned += pruned
	}

	dropped, err := sc.store.ForgetOtherRoots(ctx, tx, cleaned)
	if err != nil {
		return result, fmt.Errorf("forget unconfigured roots: %w", err)
	}
	result.Pruned += dropped

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit scan: %w", err)
	}
	committed = true
	result.Finished = sc.now()

	logger.Info().
		Int("indexed", result.Indexed).
		Int64("pruned", result.Pruned).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("took", result.Finished.Sub(result.Started)).
		Msg("scan complete")

	if result.AllDenied(len(roots)) {
		return result, fmt.Errorf("scan %d root(s): %w", len(roots), ErrPermissionDenied)
	}
	return result, nil
}

func (sc *Scanner) walkRoot(ctx context.Context, tx *sql.Tx, root string, scanTime time.Time, result *ScanResult) error {
	logger := xlog.WithComponent("library")

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			result.Errors++
			logger.Debug().Err(walkErr).Str("path", path).Msg("walk error")
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !media.IsVideo(d.Name()) {
			result.Skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors++
			return nil
		}
		if !info.Mode().IsRegular() {
			result.Skipped++
			return nil
		}

		v := Video{
			Path:      path,
			Root:      root,
			Filename:  d.Name(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		}
		if err := sc.store.UpsertVideo(ctx, tx, v, scanTime); err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		result.Indexed++
		return nil
	})
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
