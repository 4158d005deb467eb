package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/model"
)

const (
	// image scale on pages that also carry text
	textPageScale = 0.7
	textLineWidth = 95
	textMaxLines  = 18
	textStyle     = "font:Helvetica, points:9, pos:bc, off:0 24, scale:1 abs, rot:0, fillcolor:#000000"
)

// exportPDF writes one page per stored raster. Pages whose raster cannot be
// read are reported and left out.
func (e *Exporter) exportPDF(ctx context.Context, doc *model.Document, out string, f PDF, res *Result) {
	tmp, err := os.MkdirTemp(out, ".pdf-*")
	if err != nil {
		res.Fail("pdf", err)
		return
	}
	defer os.RemoveAll(tmp)

	var (
		images []string
		texts  []string
	)
	for _, page := range doc.Pages {
		item := fmt.Sprintf("page %d", page.PageNumber)
		if err := ctx.Err(); err != nil {
			res.Fail(item, err)
			continue
		}

		path, err := e.stagePage(page, tmp)
		if err != nil {
			res.Fail(item, err)
			continue
		}
		images = append(images, path)
		texts = append(texts, page.OcrText)
	}

	if len(images) == 0 {
		res.Fail("pdf", ErrNoPages)
		return
	}

	path := filepath.Join(out, baseName(f.BaseName, doc)+".pdf")
	if err := writePDF(path, tmp, images, texts, f.IncludeOCRText); err != nil {
		_ = os.Remove(path)
		res.Fail("pdf", err)
		return
	}

	res.Artifacts = append(res.Artifacts, path)
	res.Succeed()
}

// stagePage decodes a stored raster into a plain PNG file pdfcpu can import.
func (e *Exporter) stagePage(page model.Page, dir string) (string, error) {
	img, err := e.blobs.GetImage(page.ImagePath)
	if err != nil {
		return "", err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("page_%04d.png", page.PageNumber))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func writePDF(path, tmp string, images, texts []string, includeText bool) error {
	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Center
	imp.Scale = 1.0
	if includeText {
		imp.Pos = types.TopCenter
		imp.Scale = textPageScale
	}

	if !includeText {
		return api.ImportImagesFile(images, path, imp, nil)
	}

	raw := filepath.Join(tmp, "images.pdf")
	if err := api.ImportImagesFile(images, raw, imp, nil); err != nil {
		return err
	}

	marks := make(map[int]*pdfmodel.Watermark)
	for i, text := range texts {
		text = wrapText(text, textLineWidth, textMaxLines)
		if text == "" {
			continue
		}
		wm, err := api.TextWatermark(text, textStyle, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("page %d text: %w", i+1, err)
		}
		marks[i+1] = wm
	}

	if len(marks) == 0 {
		return os.Rename(raw, path)
	}

	return api.AddWatermarksMapFile(raw, path, marks, nil)
}

// wrapText breaks text into lines of at most width runes, keeping maxLines.
func wrapText(text string, width, maxLines int) string {
	var lines []string
	for _, paragraph := range strings.Split(strings.TrimSpace(text), "\n") {
		line := ""
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) > maxLines {
		lines = append(lines[:maxLines-1], "...")
	}
	return strings.Join(lines, "\n")
}
