package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

// CSVStorage writes one <category>.csv file per category.
type CSVStorage struct {
	dir    string
	mu     sync.Mutex
	files  int
	rows   int
	logger *slog.Logger
}

// NewCSVStorage creates a CSV storage rooted at outputDir.
func NewCSVStorage(outputDir string, logger *slog.Logger) (*CSVStorage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &CSVStorage{
		dir:    outputDir,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

// Path returns the file a category is written to.
func (s *CSVStorage) Path(category string) string {
	return filepath.Join(s.dir, category+".csv")
}

func (s *CSVStorage) Store(category string, products []*types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(category)
	if err := writeCSV(path, products); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}

	s.files++
	s.rows += len(products)
	s.logger.Info("CSV written", "path", path, "items", len(products))
	return nil
}

func (s *CSVStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("csv storage closing", "files", s.files, "items", s.rows)
	return nil
}

func writeCSV(path string, products []*types.Product) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(f)
	w.UseCRLF = true

	if err := w.Write(types.CSVHeader); err != nil {
		f.Close()
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, p := range products {
		if err := w.Write(p.Row()); err != nil {
			f.Close()
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush CSV: %w", err)
	}
	return f.Close()
}
