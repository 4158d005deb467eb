package export

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/table"
)

const (
	sheetName   = "Sheet1"
	minColWidth = 8
	maxColWidth = 60
)

// exportSpreadsheet recognizes the enhanced, non-binarized page and writes the
// detected table with its first row as header.
func (e *Exporter) exportSpreadsheet(ctx context.Context, doc *model.Document, out string, f Spreadsheet, res *Result) {
	src := f.Image
	if src == nil {
		var err error
		src, err = e.pageImage(doc, f.PageNumber)
		if err != nil {
			res.Fail("xlsx", err)
			return
		}
	}

	if e.engine == nil {
		res.Fail("xlsx", fmt.Errorf("recognize table: no ocr engine"))
		return
	}

	result, err := e.engine.Recognize(ctx, imaging.Enhance(src), e.lang)
	if err != nil {
		res.Fail("xlsx", fmt.Errorf("recognize table: %w", err))
		return
	}

	rows := table.Extract(result.Blocks)
	if len(rows) < 2 {
		res.Fail("xlsx", ErrNoTableDetected)
		return
	}

	path := filepath.Join(out, baseName(f.BaseName, doc)+".xlsx")
	if err := writeWorkbook(path, rows); err != nil {
		res.Fail("xlsx", err)
		return
	}

	res.Artifacts = append(res.Artifacts, path)
	res.Succeed()
}

func writeWorkbook(path string, rows [][]string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	header, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDDDDD"}},
	})
	if err != nil {
		return err
	}

	widths := make([]int, len(rows[0]))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		values := make([]interface{}, len(row))
		for j, value := range row {
			values[j] = value
			if n := utf8.RuneCountInString(value); j < len(widths) && n > widths[j] {
				widths[j] = n
			}
		}
		if err := wb.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(sheetName, "A1", last, header); err != nil {
		return err
	}

	for j, width := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if err := wb.SetColWidth(sheetName, col, col, float64(clampWidth(width+2))); err != nil {
			return err
		}
	}

	return wb.SaveAs(path)
}

func clampWidth(w int) int {
	switch {
	case w < minColWidth:
		return minColWidth
	case w > maxColWidth:
		return maxColWidth
	default:
		return w
	}
}
