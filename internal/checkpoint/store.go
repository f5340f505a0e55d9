// Package checkpoint persists the last fully processed date so an
// interrupted run can resume without reprocessing completed days.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// State is the on-disk checkpoint record.
type State struct {
	LastDate  string    `json:"last_date"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps the checkpoint in a single JSON file. Commit writes a
// temp file in the same directory and renames it over the target, so a
// crash mid-commit leaves either the old record or the new one.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore returns a store rooted at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the checkpoint. A missing or unreadable file means "no prior
// progress", never an error: the run simply starts from its configured
// start date.
func (s *FileStore) Load() (time.Time, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Checkpoint unreadable; starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return time.Time{}, false
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("Checkpoint corrupt; starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return time.Time{}, false
	}
	date, err := time.Parse(scraper.DateLayout, state.LastDate)
	if err != nil {
		s.logger.Warn("Checkpoint date invalid; starting fresh",
			zap.String("last_date", state.LastDate), zap.Error(err))
		return time.Time{}, false
	}

	s.logger.Info("Loaded checkpoint", zap.String("last_date", state.LastDate))
	return date, true
}

// Commit atomically records date as the last completed date.
func (s *FileStore) Commit(date time.Time) error {
	state := State{
		LastDate:  date.Format(scraper.DateLayout),
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace checkpoint %s: %w", s.path, err)
	}

	s.logger.Debug("Checkpoint committed", zap.String("last_date", state.LastDate))
	return nil
}
