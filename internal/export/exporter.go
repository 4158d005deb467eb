// Package export serializes stored documents into files.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/report"
)

const (
	DefaultJPEGQuality = 90
	// PageSeparator sits between the texts of consecutive pages in TXT exports.
	PageSeparator = "\n\n--- Nova Página ---\n\n"
)

var (
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrNoTableDetected = errors.New("no table detected")
	ErrNoPages         = errors.New("document has no pages")
)

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

// Result lists the written artifact paths next to the per-item report.
type Result struct {
	Artifacts []string
	report.Report
}

type Exporter struct {
	dir     string
	blobs   *blob.Store
	engine  ocr.Engine
	lang    ocr.Language
	metrics *metrics.Metrics
}

// NewExporter writes artifacts below dir. engine is only used for spreadsheets.
func NewExporter(dir string, blobs *blob.Store, engine ocr.Engine, lang ocr.Language, m *metrics.Metrics) *Exporter {
	return &Exporter{
		dir:     dir,
		blobs:   blobs,
		engine:  engine,
		lang:    lang,
		metrics: m,
	}
}

// Dir is the root directory of all exports.
func (e *Exporter) Dir() string {
	return e.dir
}

// Export writes doc in format into <dir>/<document id>/. A failed artifact or
// page is reported and never stops the others.
func (e *Exporter) Export(ctx context.Context, doc *model.Document, format Format) *Result {
	res := &Result{}

	if err := validate.Struct(format); err != nil {
		res.Fail(format.Name(), err)
		return res
	}

	out := filepath.Join(e.dir, doc.ID)
	if err := os.MkdirAll(out, 0755); err != nil {
		res.Fail(format.Name(), fmt.Errorf("create export directory: %w", err))
		return res
	}

	doc.SortPages()

	switch f := format.(type) {
	case PDF:
		e.exportPDF(ctx, doc, out, f, res)
	case JPEG:
		e.exportJPEG(ctx, doc, out, f, res)
	case TXT:
		e.exportTXT(doc, out, f, res)
	case Spreadsheet:
		e.exportSpreadsheet(ctx, doc, out, f, res)
	default:
		res.Fail(format.Name(), ErrUnknownFormat)
	}

	for range res.Artifacts {
		e.metrics.AddArtifact(format.Name(), "succeeded")
	}
	for range res.Failures {
		e.metrics.AddArtifact(format.Name(), "failed")
	}

	logrus.Infof("exported document %s as %s: %d artifacts, status %s", doc.ID, format.Name(), len(res.Artifacts), res.Status())

	return res
}

func (e *Exporter) exportJPEG(ctx context.Context, doc *model.Document, out string, f JPEG, res *Result) {
	if len(doc.Pages) == 0 {
		res.Fail("jpeg", ErrNoPages)
		return
	}

	for _, page := range doc.Pages {
		item := fmt.Sprintf("page %d", page.PageNumber)
		if err := ctx.Err(); err != nil {
			res.Fail(item, err)
			continue
		}

		path := filepath.Join(out, fmt.Sprintf("scan_page_%d.jpg", page.PageNumber))
		if err := e.writeJPEG(page, path, f.Quality); err != nil {
			res.Fail(item, err)
			continue
		}

		res.Artifacts = append(res.Artifacts, path)
		res.Succeed()
	}
}

func (e *Exporter) writeJPEG(page model.Page, path string, quality int) error {
	img, err := e.blobs.GetImage(page.ImagePath)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := imaging.EncodeJPEG(file, img, quality); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}

	return file.Close()
}

func (e *Exporter) exportTXT(doc *model.Document, out string, f TXT, res *Result) {
	texts := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		texts = append(texts, page.OcrText)
	}

	path := filepath.Join(out, baseName(f.BaseName, doc)+".txt")
	if err := os.WriteFile(path, []byte(strings.Join(texts, PageSeparator)), 0644); err != nil {
		res.Fail("txt", err)
		return
	}

	res.Artifacts = append(res.Artifacts, path)
	res.Succeed()
}

// pageImage resolves the raster of a stored page, 1 when pageNumber is unset.
func (e *Exporter) pageImage(doc *model.Document, pageNumber int) (image.Image, error) {
	if pageNumber == 0 {
		pageNumber = 1
	}
	for _, page := range doc.Pages {
		if page.PageNumber == pageNumber {
			return e.blobs.GetImage(page.ImagePath)
		}
	}
	return nil, fmt.Errorf("page %d: %w", pageNumber, ErrNoPages)
}

// baseName is the sanitized caller name, or the document name when empty.
func baseName(name string, doc *model.Document) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = doc.Name
	}
	name = strings.TrimSpace(unsafeName.ReplaceAllString(name, "_"))
	if name == "" || name == "." || name == ".." {
		name = doc.ID
	}
	return name
}
