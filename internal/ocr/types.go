// Package ocr is the boundary to text recognition. The pipeline never
// recognizes text itself; it depends only on the shapes declared here.
package ocr

import (
	"context"
	"errors"
	"image"
	"strings"
)

var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Language selects the script set an engine recognizes.
type Language string

const (
	LanguageLatin      Language = "LATIN"
	LanguageChinese    Language = "CHINESE"
	LanguageDevanagari Language = "DEVANAGARI"
	LanguageJapanese   Language = "JAPANESE"
	LanguageKorean     Language = "KOREAN"
)

// ParseLanguage falls back to LanguageLatin for empty or unknown names.
func ParseLanguage(s string) Language {
	switch lang := Language(strings.ToUpper(strings.TrimSpace(s))); lang {
	case LanguageLatin, LanguageChinese, LanguageDevanagari, LanguageJapanese, LanguageKorean:
		return lang
	default:
		return LanguageLatin
	}
}

// Rect is a bounding box in pixel coordinates, origin at the top-left corner.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// TextBlock is a recognized substring and where it was found.
type TextBlock struct {
	Text   string `json:"text"`
	Bounds Rect   `json:"bounds"`
}

// Result is the output of one recognition: the flat text plus positioned blocks
// in reading order.
type Result struct {
	Text   string      `json:"text"`
	Blocks []TextBlock `json:"blocks"`
}

// Engine recognizes text in a bitmap.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, lang Language) (Result, error)
}
