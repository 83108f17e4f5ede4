// Package csvsink appends release records to a CSV dataset file
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"releasepulse/internal/services/releases/domain"
)

// Sink appends rows to one file. The header is written when the file is new or empty
type Sink struct {
	mu   sync.Mutex
	path string
}

// New returns a sink for path; parent directories are created on first write
func New(path string) *Sink { return &Sink{path: path} }

// Name implements domain.Sink
func (s *Sink) Name() string { return "csv" }

// Path returns the dataset file
func (s *Sink) Path() string { return s.path }

// Write implements domain.Sink
func (s *Sink) Write(ctx context.Context, recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csvsink: mkdir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csvsink: open: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("csvsink: stat: %w", err)
	}

	if err := writeRecords(f, st.Size() == 0, recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("csvsink: write: %w", err)
	}
	return f.Close()
}

// writeRecords encodes recs, preceded by the column header when header is set
func writeRecords(w io.Writer, header bool, recs []domain.Record) error {
	rows := make([][]string, 0, len(recs)+1)
	if header {
		rows = append(rows, domain.Columns)
	}
	for _, r := range recs {
		rows = append(rows, r.Strings())
	}
	return csv.NewWriter(w).WriteAll(rows)
}

var _ domain.Sink = (*Sink)(nil)
