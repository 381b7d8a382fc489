// Package memory is an in-process report destination for tests and for
// embedders that keep reports in memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"moneymanager/internal/currency"
	"moneymanager/internal/ledger"
	"moneymanager/internal/sheets"
)

var _ sheets.ReportWriter = (*Writer)(nil)

// Writer keeps the value grid of every report written to it.
type Writer struct {
	mu      sync.Mutex
	reports [][][]any
}

func New() *Writer {
	return &Writer{}
}

func (w *Writer) WriteReport(ctx context.Context, r ledger.Report, code currency.Code) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := sheets.ReportValues(r, code)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, values)
	return nil
}

// Last returns the most recent grid, or nil when nothing was written.
func (w *Writer) Last() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.reports) == 0 {
		return nil
	}
	return slices.Clone(w.reports[len(w.reports)-1])
}

// Len is the number of reports written.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.reports)
}
