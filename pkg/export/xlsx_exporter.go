package export

import (
	"fmt"

	"github.com/noah-isme/sma-absence-alerts/pkg/tabular"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render produces workbook bytes for the dataset.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	return tabular.WriteXLSX(tabular.Table{Headers: data.Headers, Rows: data.Records()})
}
