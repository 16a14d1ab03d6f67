// Package gallery holds the browsable video list: the full newest-first
// path list from the index, the filename filter applied to it, and the
// display rows bound to each visible path.
package gallery

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Filter returns the subsequence of all whose file name contains query,
// compared case-insensitively. An empty query returns all unchanged.
func Filter(all []string, query string) []string {
	if query == "" {
		return all
	}
	q := strings.ToLower(query)
	out := make([]string, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(filepath.Base(p)), q) {
			out = append(out, p)
		}
	}
	return out
}

// CountLabel renders the visible-count caption.
func CountLabel(n int) string {
	if n == 1 {
		return "1 video"
	}
	return strconv.Itoa(n) + " videos"
}
