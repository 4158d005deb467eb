// Package report carries the outcome of batch operations (scan, export, dispatch)
// across the pipeline boundary.
package report

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// ItemError is the failure of one item of a batch: a page, an artifact or a target.
type ItemError struct {
	Item string `json:"item"`
	Err  error  `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Report counts the items of a batch and keeps the ones that failed.
type Report struct {
	Total     int
	Succeeded int
	Failures  []ItemError
}

func (r *Report) Succeed() {
	r.Total++
	r.Succeeded++
}

func (r *Report) Fail(item string, err error) {
	r.Total++
	r.Failures = append(r.Failures, ItemError{Item: item, Err: err})
}

// Warn counts an item that succeeded but still carries err, e.g. a page kept
// without its text.
func (r *Report) Warn(item string, err error) {
	r.Succeed()
	r.Failures = append(r.Failures, ItemError{Item: item, Err: err})
}

// Void records that the results of the batch could not be kept: every succeeded
// item is lost and the batch fails on item.
func (r *Report) Void(item string, err error) {
	r.Succeeded = 0
	r.Fail(item, err)
}

// Merge folds other into r.
func (r *Report) Merge(other Report) {
	r.Total += other.Total
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}

// Status is failed when nothing succeeded, partial when some items failed or
// carry a warning.
func (r *Report) Status() Status {
	switch {
	case r.Succeeded == 0:
		return StatusFailed
	case len(r.Failures) > 0:
		return StatusPartial
	default:
		return StatusSucceeded
	}
}

func (r *Report) OK() bool {
	return r.Status() == StatusSucceeded
}

// Err joins the item failures, nil when there are none.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		msgs = append(msgs, failure.Error())
	}
	return fmt.Errorf("%d errors in %d items: %s", len(r.Failures), r.Total, strings.Join(msgs, "; "))
}

// Messages renders the failures for transport.
func (r *Report) Messages() []string {
	msgs := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		msgs = append(msgs, failure.Error())
	}
	return msgs
}
