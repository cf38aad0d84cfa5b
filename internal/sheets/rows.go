package sheets

import (
	"errors"
	"fmt"
	"strings"

	"budgeting/internal/core"
)

var ErrMissingColumn = errors.New("missing required column")

// Header names accepted for each column, compared case-insensitively.
var (
	nameHeaders   = []string{"name", "description", "item"}
	amountHeaders = []string{"amount", "value"}
	tagHeaders    = []string{"category", "tag"}
)

// Columns locates the import columns in a header row. Tag is -1 when the
// sheet has no category column.
type Columns struct {
	Name   int
	Amount int
	Tag    int
}

// FindColumns maps a header row to column indexes.
func FindColumns(header []string) (Columns, error) {
	cols := Columns{
		Name:   indexOfAny(header, nameHeaders),
		Amount: indexOfAny(header, amountHeaders),
		Tag:    indexOfAny(header, tagHeaders),
	}
	var missing []string
	if cols.Name == -1 {
		missing = append(missing, "name")
	}
	if cols.Amount == -1 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumn, strings.Join(missing, ","), header)
	}
	return cols, nil
}

// ParseRows reads a header row followed by data rows. Rows with every cell
// blank are skipped; everything else is passed through as-is, since name and
// amount validation belongs to the merge.
func ParseRows(rows [][]string) ([]core.RawRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := FindColumns(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, core.RawRecord{
			Name:   strings.TrimSpace(safeGet(row, cols.Name)),
			Amount: strings.TrimSpace(safeGet(row, cols.Amount)),
			Tag:    strings.TrimSpace(safeGet(row, cols.Tag)),
		})
	}
	return out, nil
}

// ItemRows renders items as a header plus one row per item.
func ItemRows(items []core.LineItem) [][]string {
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, []string{"name", "amount", "category"})
	for _, it := range items {
		rows = append(rows, []string{it.Name, core.FormatAmount(it.Value), it.Tag()})
	}
	return rows
}

func indexOfAny(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
