package sheets

import (
	"context"

	"budgeting/internal/core"
)

// Ports for spreadsheet adapters.
type (
	// RecordReader yields the rows of an import source.
	RecordReader interface {
		ReadRecords(ctx context.Context) ([]core.RawRecord, error)
	}

	// ItemWriter exports line items to a spreadsheet target.
	ItemWriter interface {
		WriteItems(ctx context.Context, items []core.LineItem) error
	}
)
