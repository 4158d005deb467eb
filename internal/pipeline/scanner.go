// Package pipeline runs captured frames through correction, enhancement and
// recognition and stores the result as one document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/capture"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/report"
	"github.com/emrgen/docscan/internal/service"
)

const (
	DefaultConcurrency = 4
	pageNamespace      = "pages"
)

var ErrNoPages = errors.New("no pages to scan")

// Config tunes a Scanner.
type Config struct {
	Language    ocr.Language
	Concurrency int
}

// Scanner turns frames into stored documents.
type Scanner struct {
	docs      *service.DocumentService
	blobs     *blob.Store
	engine    ocr.Engine
	publisher queue.Publisher
	metrics   *metrics.Metrics
	cfg       Config
}

func NewScanner(docs *service.DocumentService, blobs *blob.Store, engine ocr.Engine, publisher queue.Publisher, m *metrics.Metrics, cfg Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Language == "" {
		cfg.Language = ocr.LanguageLatin
	}
	if publisher == nil {
		publisher = queue.NewNop()
	}

	return &Scanner{
		docs:      docs,
		blobs:     blobs,
		engine:    engine,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
	}
}

// ScanResult is the outcome of one scan. Document is nil when no page could be
// stored. Skipped counts the pages left unprocessed by cancellation.
type ScanResult struct {
	Document *model.Document
	Skipped  int
	report.Report
}

type pageOutcome struct {
	input service.PageInput
	done  bool
	err   error
}

// Scan processes frames concurrently and stores the completed pages, in frame
// order, as one document. Cancelling ctx stops the pages not yet finished; the
// finished ones are still stored.
func (s *Scanner) Scan(ctx context.Context, name string, frames []capture.Frame) *ScanResult {
	res, pages := s.process(ctx, frames)
	if len(pages) == 0 {
		return res
	}

	// completed pages outlive the caller's cancellation
	storeCtx := context.WithoutCancel(ctx)
	start := time.Now()
	doc, err := s.docs.CreateDocument(storeCtx, name, pages)
	s.metrics.ObserveStage("store", start)
	if err != nil {
		s.discard(pages)
		res.Void("document", err)
		return res
	}
	res.Document = doc

	s.publish(storeCtx, doc, res)
	logrus.Infof("scanned document %s: %d pages stored, %d failed, %d skipped", doc.ID, doc.PageCount, len(res.Failures), res.Skipped)

	return res
}

// Append processes frames like Scan and adds the completed pages after the last
// page of an existing document. An unknown document is returned as an error
// before any frame is processed.
func (s *Scanner) Append(ctx context.Context, id uuid.UUID, frames []capture.Frame) (*ScanResult, error) {
	if _, err := s.docs.GetDocument(ctx, id); err != nil {
		return nil, err
	}

	res, pages := s.process(ctx, frames)
	if len(pages) == 0 {
		return res, nil
	}

	storeCtx := context.WithoutCancel(ctx)
	start := time.Now()
	doc, err := s.docs.AddPages(storeCtx, id, pages)
	s.metrics.ObserveStage("store", start)
	if err != nil {
		s.discard(pages)
		res.Void("document", err)
		return res, nil
	}
	res.Document = doc

	s.publish(storeCtx, doc, res)
	logrus.Infof("appended %d pages to document %s, %d failed, %d skipped", len(pages), doc.ID, len(res.Failures), res.Skipped)

	return res, nil
}

// process runs every frame through processPage, at most cfg.Concurrency at a
// time, and returns the stored pages in frame order.
func (s *Scanner) process(ctx context.Context, frames []capture.Frame) (*ScanResult, []service.PageInput) {
	res := &ScanResult{}
	if len(frames) == 0 {
		res.Fail("scan", ErrNoPages)
		return res, nil
	}

	outcomes := make([]pageOutcome, len(frames))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, frame := range frames {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			input, err := s.processPage(ctx, frame)
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			outcomes[i] = pageOutcome{input: input, done: input.ImagePath != "", err: err}
			return nil
		})
	}
	// per-page failures are kept in outcomes, so Wait never fails
	_ = g.Wait()

	var pages []service.PageInput
	for i, outcome := range outcomes {
		item := fmt.Sprintf("page %d", i+1)
		switch {
		case outcome.done && outcome.err == nil:
			res.Succeed()
			s.metrics.AddPage("succeeded")
		case outcome.done:
			// stored without text
			res.Warn(item, outcome.err)
			s.metrics.AddPage("no_text")
		case outcome.err != nil:
			res.Fail(item, outcome.err)
			s.metrics.AddPage("failed")
		default:
			res.Skipped++
			s.metrics.AddPage("skipped")
			continue
		}
		if outcome.done {
			pages = append(pages, outcome.input)
		}
	}

	return res, pages
}

func (s *Scanner) discard(pages []service.PageInput) {
	for _, page := range pages {
		if err := s.blobs.Delete(page.ImagePath); err != nil {
			logrus.Errorf("failed to remove page image %s: %v", page.ImagePath, err)
		}
	}
}

func (s *Scanner) publish(ctx context.Context, doc *model.Document, res *ScanResult) {
	event := queue.NewEvent(queue.EventDocumentScanned, doc.ID, map[string]string{
		"name":   doc.Name,
		"pages":  fmt.Sprint(doc.PageCount),
		"status": string(res.Status()),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.Errorf("failed to publish scan of document %s: %v", doc.ID, err)
	}
}

// processPage corrects, enhances and recognizes one frame and stores its raster.
// A recognition failure keeps the page with empty text and is returned along
// with the stored page.
func (s *Scanner) processPage(ctx context.Context, frame capture.Frame) (service.PageInput, error) {
	if frame.Image == nil || frame.Image.Bounds().Empty() {
		return service.PageInput{}, imaging.ErrEmptyImage
	}

	start := time.Now()
	corrected := imaging.Correct(frame.Image, frame.Corners)
	s.metrics.ObserveStage("correct", start)

	start = time.Now()
	enhanced := imaging.EnhanceForScan(corrected)
	s.metrics.ObserveStage("enhance", start)

	start = time.Now()
	result, ocrErr := s.engine.Recognize(ctx, enhanced, s.cfg.Language)
	s.metrics.ObserveStage("ocr", start)
	if ocrErr != nil {
		if ctx.Err() != nil {
			return service.PageInput{}, ctx.Err()
		}
		logrus.Warnf("text recognition failed, keeping page without text: %v", ocrErr)
		result = ocr.Result{}
		ocrErr = fmt.Errorf("recognize text: %w", ocrErr)
	}

	key, err := s.blobs.PutImage(pageNamespace, enhanced)
	if err != nil {
		return service.PageInput{}, err
	}

	return service.PageInput{ImagePath: key, OcrText: result.Text}, ocrErr
}
