package library

import (
	"context"
	"errors"
	"sync"
	"time"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/metrics"
)

// Index is the video index provider: it scans the configured roots and
// answers queries for every video path ordered by modification time,
// newest first.
type Index struct {
	store   *Store
	scanner *Scanner
	roots   []string

	mu     sync.Mutex // serializes scans
	denied bool
}

// NewIndex wires a store to the roots it indexes.
func NewIndex(store *Store, roots []string) *Index {
	return &Index{
		store:   store,
		scanner: NewScanner(store),
		roots:   append([]string(nil), roots...),
	}
}

// Roots returns the configured library roots.
func (ix *Index) Roots() []string {
	return append([]string(nil), ix.roots...)
}

// Store exposes the underlying store for metadata caching.
func (ix *Index) Store() *Store {
	return ix.store
}

// Refresh rescans every root.
func (ix *Index) Refresh(ctx context.Context) (ScanResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	started := time.Now()
	res, err := ix.scanner.Scan(ctx, ix.roots)
	ix.denied = errors.Is(err, ErrPermissionDenied)

	outcome := "ok"
	switch {
	case ix.denied:
		outcome = "denied"
	case err != nil:
		outcome = "error"
	}
	count, cerr := ix.store.Count(ctx)
	if cerr != nil {
		count = 0
	}
	metrics.RecordScan(outcome, time.Since(started), count)
	return res, err
}

// Query returns all indexed paths, newest modification first. A closed
// store yields an empty list rather than an error.
func (ix *Index) Query(ctx context.Context) ([]string, error) {
	paths, err := ix.store.Paths(ctx)
	if errors.Is(err, ErrIndexClosed) {
		logger := xlog.WithComponent("library")
		logger.Warn().Err(err).Msg("query on closed index, treating as empty")
		return nil, nil
	}
	return paths, err
}

// Load rescans and queries, folding failures into a user-visible notice
// instead of an error. Permission denial yields zero paths; a later Load
// after access is granted re-offers the list.
func (ix *Index) Load(ctx context.Context) LoadResult {
	logger := xlog.WithComponent("library")

	if _, err := ix.Refresh(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return LoadResult{Notice: NoticePermissionDenied, Denied: true}
		}
		logger.Error().Err(err).Msg("scan failed, serving previous index")
	}

	paths, err := ix.Query(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("query failed")
		paths = nil
	}
	if len(paths) == 0 {
		return LoadResult{Notice: NoticeNoVideos}
	}
	return LoadResult{Paths: paths}
}

// Denied reports whether the most recent scan was refused on every root.
func (ix *Index) Denied() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.denied
}
