package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/docscan/internal/ocr"
)

// grid lays out rows x cols blocks of the given width, one row band apart,
// separated horizontally by gap pixels.
func grid(rows, cols, width, gap int) []ocr.TextBlock {
	var blocks []ocr.TextBlock
	for r := 0; r < rows; r++ {
		top := 100 + r*40
		for c := 0; c < cols; c++ {
			left := 10 + c*(width+gap)
			blocks = append(blocks, ocr.TextBlock{
				Text:   fmt.Sprintf("r%dc%d", r, c),
				Bounds: ocr.Rect{Left: left, Top: top, Right: left + width, Bottom: top + 15},
			})
		}
	}
	return blocks
}

func TestExtract_CleanGrid(t *testing.T) {
	rows := Extract(grid(4, 3, 80, 60))

	require.Len(t, rows, 4)
	for r, row := range rows {
		require.Len(t, row, 3)
		for c, cell := range row {
			assert.Equal(t, fmt.Sprintf("r%dc%d", r, c), cell)
		}
	}
}

func TestExtract_NarrowGapsMergeColumns(t *testing.T) {
	rows := Extract(grid(3, 4, 80, 30))

	// every block merges into one column, so no row is table-like
	assert.Empty(t, rows)

	mixed := grid(3, 4, 80, 30)
	// widen the gap before the last column only
	for i := range mixed {
		if i%4 == 3 {
			mixed[i].Bounds.Left += 40
			mixed[i].Bounds.Right += 40
		}
	}
	rows = Extract(mixed)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.LessOrEqual(t, len(row), 3)
	}
	assert.Equal(t, []string{"r0c0 r0c1 r0c2", "r0c3"}, rows[0])
}

func TestExtract_GapAtThresholdStartsColumn(t *testing.T) {
	rows := Extract(grid(2, 2, 80, DefaultColumnGap))

	assert.Equal(t, [][]string{{"r0c0", "r0c1"}, {"r1c0", "r1c1"}}, rows)
}

func TestExtract_TooFewRows(t *testing.T) {
	assert.Empty(t, Extract(nil))
	assert.Empty(t, Extract(grid(1, 5, 80, 60)))

	// a single-column row is not table-like and does not count
	blocks := append(grid(1, 3, 80, 60), ocr.TextBlock{
		Text:   "footer",
		Bounds: ocr.Rect{Left: 10, Top: 400, Right: 90, Bottom: 415},
	})
	assert.Empty(t, Extract(blocks))
}

func TestExtract_ModeFilterPadsAndTruncates(t *testing.T) {
	blocks := grid(3, 4, 60, 60)
	// a 3-column row is padded, a 6-column row is dropped
	blocks = append(blocks, grid(1, 3, 60, 60)...)
	for i := len(blocks) - 3; i < len(blocks); i++ {
		blocks[i].Bounds.Top, blocks[i].Bounds.Bottom = 500, 515
		blocks[i].Text = fmt.Sprintf("short%d", i)
	}
	wide := grid(1, 6, 60, 60)
	for i := range wide {
		wide[i].Bounds.Top, wide[i].Bounds.Bottom = 600, 615
	}
	blocks = append(blocks, wide...)

	rows := Extract(blocks)

	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Len(t, row, 4)
	}
	assert.Equal(t, "", rows[3][3])

	five := grid(3, 4, 60, 60)
	extra := grid(1, 5, 60, 60)
	for i := range extra {
		extra[i].Bounds.Top, extra[i].Bounds.Bottom = 700, 715
	}
	rows = Extract(append(five, extra...))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"r0c0", "r0c1", "r0c2", "r0c3"}, rows[3])
}

func TestExtract_RowBands(t *testing.T) {
	blocks := []ocr.TextBlock{
		{Text: "b", Bounds: ocr.Rect{Left: 200, Top: 45, Right: 260, Bottom: 55}},
		{Text: "a", Bounds: ocr.Rect{Left: 10, Top: 41, Right: 70, Bottom: 55}},
		{Text: "d", Bounds: ocr.Rect{Left: 200, Top: 3, Right: 260, Bottom: 15}},
		{Text: "c", Bounds: ocr.Rect{Left: 10, Top: 0, Right: 70, Bottom: 15}},
	}

	assert.Equal(t, [][]string{{"c", "d"}, {"a", "b"}}, Extract(blocks))
}
