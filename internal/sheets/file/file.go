// Package file reads import rows from xlsx and csv files and exports line
// items to them.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"
)

// Format is a supported spreadsheet file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Ensure interface conformance
var (
	_ ports.RecordReader = (*Source)(nil)
	_ ports.ItemWriter   = (*Target)(nil)
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".xlsx", ".xlsm":
		return XLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Parse reads records in format f from r.
func Parse(r io.Reader, f Format) ([]core.RawRecord, error) {
	switch f {
	case CSV:
		return ParseCSV(r)
	case XLSX:
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// ParseXLSX reads the first sheet of a workbook. The first row is the header.
func ParseXLSX(r io.Reader) ([]core.RawRecord, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return ports.ParseRows(rows)
}

// ParseCSV reads a comma separated file with a header row.
func ParseCSV(r io.Reader) ([]core.RawRecord, error) {
	maps, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(maps) == 0 {
		return nil, nil
	}

	header := make([]string, 0, len(maps[0]))
	for k := range maps[0] {
		header = append(header, k)
	}
	sort.Strings(header)
	cols, err := ports.FindColumns(header)
	if err != nil {
		return nil, err
	}
	nameKey := header[cols.Name]
	amountKey := header[cols.Amount]
	tagKey := ""
	if cols.Tag >= 0 {
		tagKey = header[cols.Tag]
	}

	out := make([]core.RawRecord, 0, len(maps))
	for _, m := range maps {
		rec := core.RawRecord{
			Name:   strings.TrimSpace(m[nameKey]),
			Amount: strings.TrimSpace(m[amountKey]),
		}
		if tagKey != "" {
			rec.Tag = strings.TrimSpace(m[tagKey])
		}
		if rec == (core.RawRecord{}) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Source reads records from a file on disk.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) ReadRecords(_ context.Context) ([]core.RawRecord, error) {
	f, err := FormatOf(s.path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer fh.Close()
	return Parse(fh, f)
}

// Target writes items to a file on disk, replacing it atomically.
type Target struct {
	path string
}

func NewTarget(path string) *Target {
	return &Target{path: path}
}

func (t *Target) WriteItems(_ context.Context, items []core.LineItem) error {
	f, err := FormatOf(t.path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, f, items); err != nil {
		return err
	}
	if err := atomic.WriteFile(t.path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

type exportRow struct {
	Name     string `csv:"name"`
	Amount   string `csv:"amount"`
	Category string `csv:"category"`
}

// Encode renders items in format f.
func Encode(w io.Writer, f Format, items []core.LineItem) error {
	switch f {
	case CSV:
		rows := make([]*exportRow, len(items))
		for i, it := range items {
			rows[i] = &exportRow{Name: it.Name, Amount: core.FormatAmount(it.Value), Category: it.Tag()}
		}
		if err := gocsv.Marshal(rows, w); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return nil
	case XLSX:
		return encodeXLSX(w, items)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

func encodeXLSX(w io.Writer, items []core.LineItem) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	for i, row := range ports.ItemRows(items) {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		// Amounts are written as numbers so formulas work on them.
		if i > 0 {
			cells[1] = items[i-1].Value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	return nil
}
