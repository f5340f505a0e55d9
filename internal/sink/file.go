package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// JSONFile maintains one growing JSON array of products. Every Deliver
// appends the product and rewrites the file atomically, so a crash loses
// at most the in-flight append and never corrupts prior records.
type JSONFile struct {
	path   string
	logger *zap.Logger

	mu       sync.Mutex
	products []json.RawMessage
}

// NewJSONFile opens the sink at path, loading any existing array so a
// resumed run keeps appending instead of truncating.
func NewJSONFile(path string, logger *zap.Logger) (*JSONFile, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &JSONFile{path: path, logger: logger}
	s.loadExisting()
	return s, nil
}

func (s *JSONFile) loadExisting() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Could not read existing output; starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var products []json.RawMessage
	if err := json.Unmarshal(data, &products); err != nil {
		s.logger.Warn("Existing output is not a JSON array; starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return
	}
	s.products = products
	s.logger.Info("Loaded existing output file",
		zap.String("path", s.path), zap.Int("products", len(products)))
}

// Name identifies this sink in logs and metrics.
func (s *JSONFile) Name() string { return "file" }

// Deliver appends the record's product and persists the whole array.
func (s *JSONFile) Deliver(_ context.Context, rec scraper.Record) error {
	productJSON, err := json.Marshal(rec.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = append(s.products, productJSON)
	if err := s.writeFile(); err != nil {
		// Roll the append back so a later record does not smuggle this
		// one in without its own delivery being accounted.
		s.products = s.products[:len(s.products)-1]
		return err
	}
	return nil
}

func (s *JSONFile) writeFile() error {
	payload, err := json.MarshalIndent(s.products, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output array: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".products-*.tmp")
	if err != nil {
		return fmt.Errorf("create output temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace output %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; every Deliver already persisted.
func (s *JSONFile) Close() error { return nil }
