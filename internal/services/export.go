package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Report"

// ExportColumn maps a row key to a spreadsheet column.
type ExportColumn struct {
	Key   string  `json:"key"`
	Title string  `json:"title"`
	Width float64 `json:"width,omitempty"`
}

// ExportTable is a titled tabular document: title on row 1, subtitle on
// row 2, headers on row 4, data from row 5.
type ExportTable struct {
	Title    string
	Subtitle string
	Columns  []ExportColumn
	Rows     []map[string]interface{}
}

const (
	exportTitleRow  = 1
	exportSubRow    = 2
	exportHeaderRow = 4
	exportFirstRow  = 5
)

// WriteXLSX renders table as an .xlsx workbook into w.
func WriteXLSX(w io.Writer, table *ExportTable) error {
	if len(table.Columns) == 0 {
		return fmt.Errorf("%w: export needs at least one column", ErrValidation)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6F4FF"}},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(exportSheet, "A1", table.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "A1", titleStyle); err != nil {
		return err
	}
	if table.Subtitle != "" {
		cell, _ := excelize.CoordinatesToCellName(1, exportSubRow)
		if err := f.SetCellValue(exportSheet, cell, table.Subtitle); err != nil {
			return err
		}
	}

	for i, col := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, exportHeaderRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, col.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return err
		}
		width := col.Width
		if width <= 0 {
			width = 16
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(exportSheet, name, name, width); err != nil {
			return err
		}
	}

	for r, row := range table.Rows {
		for c, col := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, exportFirstRow+r)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, row[col.Key]); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}
