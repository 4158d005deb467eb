// Package dispatch forwards exported artifacts to webhooks and share targets.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/report"
)

const (
	DefaultEvent   = "document.exported"
	excerptLimit   = 500
	baseRetryDelay = 100 * time.Millisecond
)

var (
	// ErrUnexpectedStatusCode is returned when the webhook answers outside 2xx.
	ErrUnexpectedStatusCode = errors.New("unexpected status code from webhook")
	// ErrWebhookTimeout is returned when retries are exhausted.
	ErrWebhookTimeout = errors.New("webhook timeout")
	ErrUnknownTarget  = errors.New("unknown dispatch target")
)

var validate = validator.New()

// Metadata identifies the sender in webhook payloads.
type Metadata struct {
	AppVersion  string `json:"appVersion"`
	DeviceModel string `json:"deviceModel"`
	UserID      string `json:"userId"`
}

type Config struct {
	MaxRetries      uint64
	MaxWaitInterval time.Duration
	Timeout         time.Duration
	Metadata        Metadata
}

// Payload is the body of a webhook delivery.
type Payload struct {
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Document  PayloadDocument `json:"document"`
	Metadata  Metadata        `json:"metadata"`
}

type PayloadDocument struct {
	Name    string `json:"name"`
	Pages   int    `json:"pages"`
	OcrText string `json:"ocrText"`
	Format  string `json:"format"`
}

// Request is one dispatch: the artifacts exported from a document in format.
type Request struct {
	Document  *model.Document
	Format    string
	Artifacts []string
}

// Result reports every webhook delivery and every artifact handed to a share target.
type Result struct {
	report.Report
}

// AllSucceeded reports whether every item was delivered.
func (r *Result) AllSucceeded() bool {
	return r.Total > 0 && len(r.Failures) == 0
}

type Dispatcher struct {
	client  *http.Client
	cfg     Config
	metrics *metrics.Metrics
}

func NewDispatcher(cfg Config, m *metrics.Metrics) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxWaitInterval <= 0 {
		cfg.MaxWaitInterval = 2 * time.Second
	}

	return &Dispatcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		metrics: m,
	}
}

// Dispatch delivers req to every target. A failed item is reported and never
// stops the remaining items or targets.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, targets ...Target) *Result {
	res := &Result{}

	for _, target := range targets {
		if target == nil {
			res.Fail("target", ErrUnknownTarget)
			d.metrics.AddDispatch("unknown", "failed")
			continue
		}

		var sub report.Report
		if err := validate.Struct(target); err != nil {
			sub.Fail(target.Name(), err)
		} else {
			switch t := target.(type) {
			case Webhook:
				d.sendWebhook(ctx, req, t, &sub)
			case CloudUpload:
				d.share(ctx, req, t.Name(), t.Via, &sub)
			case Share:
				d.share(ctx, req, t.Name(), t.Via, &sub)
			default:
				sub.Fail(target.Name(), ErrUnknownTarget)
			}
		}

		for i := 0; i < sub.Succeeded; i++ {
			d.metrics.AddDispatch(target.Name(), "succeeded")
		}
		for range sub.Failures {
			d.metrics.AddDispatch(target.Name(), "failed")
		}
		res.Merge(sub)
	}

	for _, failure := range res.Failures {
		logrus.Warnf("dispatch failed: %v", failure)
	}

	return res
}

func (d *Dispatcher) share(ctx context.Context, req Request, name string, via ShareTarget, sub *report.Report) {
	for _, artifact := range req.Artifacts {
		item := fmt.Sprintf("%s %s: %s", name, via.Name(), filepath.Base(artifact))
		if err := via.Send(ctx, req.Document.ID, artifact); err != nil {
			sub.Fail(item, err)
			continue
		}
		sub.Succeed()
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, req Request, hook Webhook, sub *report.Report) {
	item := "webhook " + hook.URL

	event := hook.Event
	if event == "" {
		event = DefaultEvent
	}

	body, err := json.Marshal(Payload{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
		Document: PayloadDocument{
			Name:    req.Document.Name,
			Pages:   req.Document.PageCount,
			OcrText: excerpt(req.Document.FullText, excerptLimit),
			Format:  req.Format,
		},
		Metadata: d.cfg.Metadata,
	})
	if err != nil {
		sub.Fail(item, fmt.Errorf("marshal webhook payload: %w", err))
		return
	}

	err = d.withExponentialBackoff(ctx, func() (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(httpReq)
		if err != nil {
			return 0, fmt.Errorf("post to webhook: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			if err := resp.Body.Close(); err != nil {
				logrus.Error(err)
			}
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, ErrUnexpectedStatusCode
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		sub.Fail(item, err)
		return
	}
	sub.Succeed()
}

func (d *Dispatcher) withExponentialBackoff(ctx context.Context, webhookFn func() (int, error)) error {
	var (
		retries    uint64
		statusCode int
		err        error
	)
	for retries <= d.cfg.MaxRetries {
		statusCode, err = webhookFn()
		if !shouldRetry(statusCode, err) {
			if errors.Is(err, ErrUnexpectedStatusCode) {
				return fmt.Errorf("%d: %w", statusCode, ErrUnexpectedStatusCode)
			}
			return err
		}
		if retries == d.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitInterval(retries, d.cfg.MaxWaitInterval)):
		}

		retries++
	}

	return fmt.Errorf("unexpected status code from webhook %d: %w", statusCode, ErrWebhookTimeout)
}

// waitInterval is 2^retries * 100ms, capped at maxWaitInterval.
func waitInterval(retries uint64, maxWaitInterval time.Duration) time.Duration {
	interval := time.Duration(math.Pow(2, float64(retries))) * baseRetryDelay
	if maxWaitInterval < interval {
		return maxWaitInterval
	}
	return interval
}

// shouldRetry retries reset connections and transient server answers.
func shouldRetry(statusCode int, err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNRESET
	}

	return statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout ||
		statusCode == http.StatusTooManyRequests
}

// excerpt cuts s to at most limit runes.
func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
