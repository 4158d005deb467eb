package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageLatin, ParseLanguage(""))
	assert.Equal(t, LanguageLatin, ParseLanguage("klingon"))
	assert.Equal(t, LanguageJapanese, ParseLanguage(" japanese "))
	assert.Equal(t, LanguageKorean, ParseLanguage("KOREAN"))
}

func TestStaticEngine(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	engine := NewStaticEngine(Result{Text: "hello", Blocks: []TextBlock{{Text: "hello", Bounds: Rect{0, 0, 10, 5}}}})

	res, err := engine.Recognize(context.Background(), img, LanguageLatin)
	assert.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, 10, res.Blocks[0].Bounds.Width())

	engine.Err = ErrEngineUnavailable
	_, err = engine.Recognize(context.Background(), img, LanguageLatin)
	assert.True(t, errors.Is(err, ErrEngineUnavailable))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStaticEngine(Result{}).Recognize(ctx, img, LanguageLatin)
	assert.ErrorIs(t, err, context.Canceled)
}
