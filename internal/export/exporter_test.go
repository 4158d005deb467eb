package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/report"
)

type fixture struct {
	exporter *Exporter
	blobs    *blob.Store
	dir      string
}

func newFixture(t *testing.T, engine ocr.Engine) *fixture {
	dir := t.TempDir()
	blobs := blob.NewStore(filepath.Join(dir, "blobs"), nil)
	require.NoError(t, blobs.EnsureDir())

	return &fixture{
		exporter: NewExporter(filepath.Join(dir, "exports"), blobs, engine, ocr.LanguageLatin, nil),
		blobs:    blobs,
		dir:      dir,
	}
}

// document builds a document with one stored raster per text.
func (f *fixture) document(t *testing.T, texts ...string) *model.Document {
	doc := &model.Document{ID: uuid.New().String(), Name: "Monthly Report"}
	for i, text := range texts {
		img := image.NewGray(image.Rect(0, 0, 40, 60))
		for p := range img.Pix {
			img.Pix[p] = uint8(40 * (i + 1))
		}
		key, err := f.blobs.PutImage("pages", img)
		require.NoError(t, err)

		doc.Pages = append(doc.Pages, model.Page{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			PageNumber: i + 1,
			ImagePath:  key,
			OcrText:    text,
		})
	}
	doc.Recompute()
	return doc
}

func TestExporter_TXT(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "first page", "second page")

	res := f.exporter.Export(context.TODO(), doc, TXT{BaseName: "notes"})
	require.Equal(t, report.StatusSucceeded, res.Status())
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "notes.txt", filepath.Base(res.Artifacts[0]))

	data, err := os.ReadFile(res.Artifacts[0])
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "--- Nova Página ---"))
	assert.Equal(t, "first page"+PageSeparator+"second page", string(data))
}

func TestExporter_TXTDefaultName(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "only")
	doc.Name = "a/b: c"

	res := f.exporter.Export(context.TODO(), doc, TXT{})
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, filepath.Join(f.exporter.Dir(), doc.ID, "a_b_ c.txt"), res.Artifacts[0])
}

func TestExporter_JPEG(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "a", "b", "c")

	res := f.exporter.Export(context.TODO(), doc, JPEG{Quality: 80})
	require.Equal(t, report.StatusSucceeded, res.Status())
	require.Len(t, res.Artifacts, 3)
	for i, path := range res.Artifacts {
		assert.Equal(t, fmt.Sprintf("scan_page_%d.jpg", i+1), filepath.Base(path))

		img, err := imaging.DecodeFile(path)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 40, 60), img.Bounds())
	}
}

func TestExporter_JPEGPartial(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "a", "b", "c")
	require.NoError(t, f.blobs.Delete(doc.Pages[1].ImagePath))

	res := f.exporter.Export(context.TODO(), doc, JPEG{Quality: 50})
	assert.Equal(t, report.StatusPartial, res.Status())
	assert.Len(t, res.Artifacts, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "page 2", res.Failures[0].Item)
}

func TestExporter_InvalidOptions(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "a")

	for _, format := range []Format{JPEG{Quality: 101}, JPEG{Quality: -1}, TXT{BaseName: "../escape"}} {
		res := f.exporter.Export(context.TODO(), doc, format)
		assert.Equal(t, report.StatusFailed, res.Status())
		assert.Empty(t, res.Artifacts)
	}
}

func TestExporter_PDF(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t, "first page text", "second page text")

	for _, includeText := range []bool{false, true} {
		t.Run(fmt.Sprintf("text=%v", includeText), func(t *testing.T) {
			res := f.exporter.Export(context.TODO(), doc, PDF{BaseName: "scan", IncludeOCRText: includeText})
			require.Equal(t, report.StatusSucceeded, res.Status(), res.Messages())
			require.Len(t, res.Artifacts, 1)

			count, err := api.PageCountFile(res.Artifacts[0])
			require.NoError(t, err)
			assert.Equal(t, 2, count)
		})
	}
}

func TestExporter_PDFNoPages(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.document(t)

	res := f.exporter.Export(context.TODO(), doc, PDF{})
	assert.Equal(t, report.StatusFailed, res.Status())
	assert.ErrorIs(t, res.Failures[0], ErrNoPages)
}

func tableBlocks(rows ...[]string) []ocr.TextBlock {
	var blocks []ocr.TextBlock
	for r, row := range rows {
		for c, text := range row {
			left := 10 + c*200
			top := 20 + r*40
			blocks = append(blocks, ocr.TextBlock{
				Text:   text,
				Bounds: ocr.Rect{Left: left, Top: top, Right: left + 100, Bottom: top + 15},
			})
		}
	}
	return blocks
}

func TestExporter_Spreadsheet(t *testing.T) {
	engine := ocr.NewStaticEngine(ocr.Result{Blocks: tableBlocks(
		[]string{"Item", "Qty", "Price"},
		[]string{"Paper", "2", "10.00"},
		[]string{"Ink", "1", "25.50"},
	)})
	f := newFixture(t, engine)
	doc := f.document(t, "table page")

	res := f.exporter.Export(context.TODO(), doc, Spreadsheet{BaseName: "invoice"})
	require.Equal(t, report.StatusSucceeded, res.Status(), res.Messages())
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "invoice.xlsx", filepath.Base(res.Artifacts[0]))

	wb, err := excelize.OpenFile(res.Artifacts[0])
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(sheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Item", "Qty", "Price"},
		{"Paper", "2", "10.00"},
		{"Ink", "1", "25.50"},
	}, rows)

	styleID, err := wb.GetCellStyle(sheetName, "B1")
	require.NoError(t, err)
	style, err := wb.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
}

func TestExporter_SpreadsheetUsesEnhancedImage(t *testing.T) {
	var seen color.Color
	engine := ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		seen = img.At(0, 0)
		return ocr.Result{}, nil
	})
	f := newFixture(t, engine)
	doc := f.document(t, "page")

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for p := range src.Pix {
		src.Pix[p] = 100
		if p%4 == 3 {
			src.Pix[p] = 255
		}
	}

	res := f.exporter.Export(context.TODO(), doc, Spreadsheet{Image: src})
	assert.Equal(t, report.StatusFailed, res.Status())
	assert.ErrorIs(t, res.Failures[0], ErrNoTableDetected)

	// enhanced but not binarized: 100*1.2+10
	r, g, b, _ := seen.RGBA()
	assert.Equal(t, []uint32{130, 130, 130}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestExporter_SpreadsheetNoTable(t *testing.T) {
	engine := ocr.NewStaticEngine(ocr.Result{Blocks: tableBlocks([]string{"just", "one row"})})
	f := newFixture(t, engine)
	doc := f.document(t, "page")

	res := f.exporter.Export(context.TODO(), doc, Spreadsheet{PageNumber: 1})
	assert.Equal(t, report.StatusFailed, res.Status())
	assert.ErrorIs(t, res.Failures[0], ErrNoTableDetected)
	assert.Empty(t, res.Artifacts)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree", wrapText("one two three", 7, 5))
	assert.Equal(t, "a\n...", wrapText("a\nb\nc", 10, 2))
	assert.Equal(t, "", wrapText("  ", 10, 2))
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, JPEG{Quality: DefaultJPEGQuality}, format)

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
