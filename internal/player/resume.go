package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// Resume is the last watched item, saved when a session closes.
type Resume struct {
	Path       string    `json:"path"`
	PositionMs int64     `json:"position_ms"`
	SavedAt    time.Time `json:"saved_at"`
}

// SaveResume atomically writes r to path.
func SaveResume(path string, r Resume) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write resume file: %w", err)
	}
	return nil
}

// LoadResume reads the resume file. A missing file returns ok=false.
func LoadResume(path string) (r Resume, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Resume{}, false, nil
	}
	if err != nil {
		return Resume{}, false, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return Resume{}, false, fmt.Errorf("parse resume file: %w", err)
	}
	return r, r.Path != "", nil
}

// ResumeIndex finds r.Path in paths, returning -1 when it is gone.
func ResumeIndex(paths []string, r Resume) int {
	for i, p := range paths {
		if p == r.Path {
			return i
		}
	}
	return -1
}
