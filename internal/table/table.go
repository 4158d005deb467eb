// Package table regroups positioned OCR text into rows and columns. The
// heuristic is approximate: fixed row bands and a fixed column gap, with no
// attempt at ruling-line or alignment detection.
package table

import (
	"sort"
	"strings"

	"github.com/emrgen/docscan/internal/ocr"
)

const (
	DefaultRowBand   = 20
	DefaultColumnGap = 50
)

// Extractor holds the two thresholds of the heuristic, in pixels.
type Extractor struct {
	// RowBand quantizes the top edge of each block into rows.
	RowBand int
	// ColumnGap is the horizontal gap at or above which a new column starts.
	ColumnGap int
}

func NewExtractor() *Extractor {
	return &Extractor{RowBand: DefaultRowBand, ColumnGap: DefaultColumnGap}
}

// Extract uses the default thresholds.
func Extract(blocks []ocr.TextBlock) [][]string {
	return NewExtractor().Extract(blocks)
}

// Extract returns rows of cells, or nil when fewer than two table-like rows exist.
func (e *Extractor) Extract(blocks []ocr.TextBlock) [][]string {
	band := e.RowBand
	if band <= 0 {
		band = DefaultRowBand
	}

	bands := make(map[int][]ocr.TextBlock)
	for _, block := range blocks {
		key := floorDiv(block.Bounds.Top, band)
		bands[key] = append(bands[key], block)
	}

	keys := make([]int, 0, len(bands))
	for key := range bands {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	var rows [][]string
	for _, key := range keys {
		row := e.columns(bands[key])
		if len(row) < 2 {
			continue
		}
		rows = append(rows, row)
	}

	rows = normalize(rows)
	if len(rows) < 2 {
		return nil
	}
	return rows
}

// columns walks a row left to right, merging blocks closer than ColumnGap.
func (e *Extractor) columns(row []ocr.TextBlock) []string {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].Bounds.Left < row[j].Bounds.Left
	})

	var cells []string
	var current []string
	prevRight := 0
	for i, block := range row {
		if i > 0 && block.Bounds.Left-prevRight >= e.ColumnGap {
			cells = append(cells, strings.Join(current, " "))
			current = nil
		}
		current = append(current, block.Text)
		prevRight = block.Bounds.Right
	}
	if len(current) > 0 {
		cells = append(cells, strings.Join(current, " "))
	}
	return cells
}

// normalize keeps rows within one column of the modal column count, padding or
// truncating them to exactly that count.
func normalize(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}

	mode := modalWidth(rows)
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if abs(len(row)-mode) > 1 {
			continue
		}
		cells := make([]string, mode)
		copy(cells, row)
		out = append(out, cells)
	}
	return out
}

// modalWidth returns the most frequent row width; ties go to the width seen first.
func modalWidth(rows [][]string) int {
	counts := make(map[int]int)
	var order []int
	for _, row := range rows {
		if counts[len(row)] == 0 {
			order = append(order, len(row))
		}
		counts[len(row)]++
	}

	mode, best := 0, 0
	for _, width := range order {
		if counts[width] > best {
			mode, best = width, counts[width]
		}
	}
	return mode
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
