package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	TemplateFileName  = "sales_import_template.xlsx"
	templateSheetName = "Sheet1"
)

var templateRows = [][]any{
	{"茶叶", "华南区", "2024-01-01", 100, 15.5},
	{"咖啡", "华东区", "2024-01-02", 50, 25.0},
}

// Template renders an empty import workbook: the header row plus two sample rows.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, label := range Labels() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(templateSheetName, cell, label); err != nil {
			return nil, fmt.Errorf("write template header: %w", err)
		}
	}
	for r, row := range templateRows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(templateSheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write template row: %w", err)
			}
		}
	}
	_ = f.SetColWidth(templateSheetName, "A", "E", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return buf.Bytes(), nil
}
