package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/emrgen/docscan/internal/cache"
	"github.com/emrgen/docscan/internal/capture"
	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/report"
	"github.com/emrgen/docscan/internal/service"
	"github.com/emrgen/docscan/internal/store"
	"github.com/emrgen/docscan/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()
	tester.RemoveDBFile()

	os.Exit(code)
}

func frames(widths ...int) []capture.Frame {
	out := make([]capture.Frame, 0, len(widths))
	for _, w := range widths {
		out = append(out, capture.Frame{Image: image.NewGray(image.Rect(0, 0, w, 10))})
	}
	return out
}

// widthEngine recognizes the width of the page, which identifies the frame.
func widthEngine() ocr.Engine {
	return ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		return ocr.Result{Text: fmt.Sprintf("w%d", img.Bounds().Dx())}, nil
	})
}

func newScanner(engine ocr.Engine, publisher queue.Publisher, concurrency int) *Scanner {
	docs := service.NewDocumentService(store.NewGormStore(tester.TestDB()), tester.Blobs(), cache.NewNopDocumentCache(), queue.NewNop())
	m, _ := metrics.NewMetrics()
	return NewScanner(docs, tester.Blobs(), engine, publisher, m, Config{Concurrency: concurrency})
}

func TestScanner_Scan(t *testing.T) {
	rec := queue.NewRecorder(4)
	scanner := newScanner(widthEngine(), rec, 3)

	res := scanner.Scan(context.TODO(), "Receipts", frames(11, 12, 13, 14))
	assert.Equal(t, report.StatusSucceeded, res.Status())
	assert.NoError(t, res.Err())
	if assert.NotNil(t, res.Document) {
		assert.Equal(t, 4, res.Document.PageCount)
		assert.Equal(t, "w11\nw12\nw13\nw14", res.Document.FullText)
		for i, page := range res.Document.Pages {
			assert.Equal(t, i+1, page.PageNumber)
			_, err := tester.Blobs().GetImage(page.ImagePath)
			assert.NoError(t, err)
		}
	}

	event := <-rec.Events()
	assert.Equal(t, queue.EventDocumentScanned, event.Type)
	assert.Equal(t, res.Document.ID, event.DocumentID)
	assert.Equal(t, "4", event.Attributes["pages"])
}

func TestScanner_OCRFailureKeepsPage(t *testing.T) {
	errEngine := errors.New("engine crashed")
	engine := ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		if img.Bounds().Dx() == 12 {
			return ocr.Result{}, errEngine
		}
		return ocr.Result{Text: "ok"}, nil
	})
	scanner := newScanner(engine, nil, 2)

	res := scanner.Scan(context.TODO(), "", frames(11, 12, 13))
	assert.Equal(t, report.StatusPartial, res.Status())
	if assert.Len(t, res.Failures, 1) {
		assert.Equal(t, "page 2", res.Failures[0].Item)
		assert.ErrorIs(t, res.Failures[0], errEngine)
	}
	if assert.NotNil(t, res.Document) {
		assert.Equal(t, 3, res.Document.PageCount)
		assert.Equal(t, "ok\n\nok", res.Document.FullText)
	}
}

func TestScanner_CancelKeepsCompletedPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	engine := ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		calls++
		if calls > 1 {
			cancel()
			return ocr.Result{}, ctx.Err()
		}
		return ocr.Result{Text: "first"}, nil
	})
	scanner := newScanner(engine, nil, 1)

	res := scanner.Scan(ctx, "Interrupted", frames(11, 12, 13))
	assert.Equal(t, report.StatusSucceeded, res.Status())
	assert.Equal(t, 2, res.Skipped)
	if assert.NotNil(t, res.Document) {
		assert.Equal(t, 1, res.Document.PageCount)
		assert.Equal(t, "first", res.Document.FullText)
	}
}

func TestScanner_NoPages(t *testing.T) {
	scanner := newScanner(widthEngine(), nil, 1)

	res := scanner.Scan(context.TODO(), "Nothing", nil)
	assert.Equal(t, report.StatusFailed, res.Status())
	assert.Nil(t, res.Document)
	assert.ErrorIs(t, res.Failures[0], ErrNoPages)

	res = scanner.Scan(context.TODO(), "Blank", []capture.Frame{{}})
	assert.Equal(t, report.StatusFailed, res.Status())
	assert.Nil(t, res.Document)
}

func TestScanner_Append(t *testing.T) {
	scanner := newScanner(widthEngine(), nil, 2)

	res := scanner.Scan(context.TODO(), "Contract", frames(11))
	if !assert.NotNil(t, res.Document) {
		return
	}

	appended, err := scanner.Append(context.TODO(), uuid.MustParse(res.Document.ID), frames(12, 13))
	assert.NoError(t, err)
	assert.Equal(t, report.StatusSucceeded, appended.Status())
	if assert.NotNil(t, appended.Document) {
		assert.Equal(t, 3, appended.Document.PageCount)
		assert.Equal(t, "w11\nw12\nw13", appended.Document.FullText)
	}

	calls := 0
	counting := newScanner(ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		calls++
		return ocr.Result{}, nil
	}), nil, 1)
	missing, err := counting.Append(context.TODO(), uuid.New(), frames(14))
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
	assert.Nil(t, missing)
	assert.Zero(t, calls)
}

func TestScanner_AllPagesWithoutText(t *testing.T) {
	errEngine := errors.New("engine crashed")
	engine := ocr.EngineFunc(func(ctx context.Context, img image.Image, lang ocr.Language) (ocr.Result, error) {
		return ocr.Result{}, errEngine
	})
	scanner := newScanner(engine, nil, 2)

	res := scanner.Scan(context.TODO(), "Faded", frames(11, 12))
	assert.Equal(t, report.StatusPartial, res.Status())
	assert.Equal(t, 2, res.Succeeded)
	if assert.Len(t, res.Failures, 2) {
		assert.ErrorIs(t, res.Failures[0], errEngine)
		assert.ErrorIs(t, res.Failures[1], errEngine)
	}
	if assert.NotNil(t, res.Document) {
		assert.Equal(t, 2, res.Document.PageCount)
		assert.Empty(t, strings.TrimSpace(res.Document.FullText))
	}
}
