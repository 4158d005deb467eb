// Package tesseract recognizes text with a local Tesseract installation
// through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/ocr"
)

var _ ocr.Engine = (*Engine)(nil)

// languages maps script sets to Tesseract trained data.
var languages = map[ocr.Language][]string{
	ocr.LanguageLatin:      {"eng", "por", "spa"},
	ocr.LanguageChinese:    {"chi_sim"},
	ocr.LanguageDevanagari: {"hin"},
	ocr.LanguageJapanese:   {"jpn"},
	ocr.LanguageKorean:     {"kor"},
}

// Engine creates one gosseract client per recognition; clients are not safe
// for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
}

func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return ocr.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(languages[ocr.ParseLanguage(string(lang))]...); err != nil {
		return ocr.Result{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("bounding boxes: %w", err)
	}

	blocks := make([]ocr.TextBlock, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		blocks = append(blocks, ocr.TextBlock{
			Text: word,
			Bounds: ocr.Rect{
				Left:   b.Box.Min.X,
				Top:    b.Box.Min.Y,
				Right:  b.Box.Max.X,
				Bottom: b.Box.Max.Y,
			},
		})
	}

	return ocr.Result{
		Text:   strings.TrimSpace(text),
		Blocks: blocks,
	}, nil
}
