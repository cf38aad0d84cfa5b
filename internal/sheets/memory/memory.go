// Package memory is an in-process spreadsheet, used where no Google sheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"
)

var (
	_ ports.RecordReader = (*Sheet)(nil)
	_ ports.ItemWriter   = (*Sheet)(nil)
)

type Sheet struct {
	mu   sync.Mutex
	rows [][]string
}

// New returns a sheet holding rows, header first.
func New(rows ...[]string) *Sheet {
	return &Sheet{rows: copyRows(rows)}
}

func (s *Sheet) ReadRecords(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.ParseRows(s.rows)
}

// WriteItems replaces the sheet contents.
func (s *Sheet) WriteItems(_ context.Context, items []core.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = ports.ItemRows(items)
	return nil
}

// Rows returns a copy of the current contents.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
