// Package tabular loads attendance and roster tables from CSV or XLSX carriers.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
)

// Table is a header row plus string cells.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string

	// dateSerials is set for spreadsheet sources, where dates arrive as
	// numeric day serials rather than text.
	dateSerials bool
}

// Column returns the index of header, or -1.
func (t Table) Column(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Require fails with ErrSchema when any of columns is absent.
func (t Table) Require(columns ...string) error {
	missing := make([]string, 0)
	for _, col := range columns {
		if t.Column(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	name := t.Name
	if name == "" {
		name = "input"
	}
	return appErrors.Clone(appErrors.ErrSchema, fmt.Sprintf("%s table missing column(s): %s", name, strings.Join(missing, ", ")))
}

// Cell returns the trimmed value at row/col, or "" when the row is short.
func (t Table) Cell(row []string, col int) string {
	return strings.TrimSpace(t.RawCell(row, col))
}

// RawCell returns the value at row/col exactly as stored.
func (t Table) RawCell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Read dispatches on the file extension of name.
func Read(name string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported table format %q", filepath.Ext(name)))
	}
}

// ReadCSV parses a comma separated table with a header row.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed csv")
	}
	return fromRecords(records, false), nil
}

// ReadXLSX parses the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed xlsx")
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "read worksheet")
	}
	return fromRecords(rows, true), nil
}

// WriteXLSX renders a table into a single-sheet workbook.
func WriteXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	all := append([][]string{t.Headers}, t.Rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func fromRecords(records [][]string, dateSerials bool) Table {
	t := Table{dateSerials: dateSerials}
	if len(records) == 0 {
		return t
	}
	t.Headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		t.Headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, row := range records[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
