package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/emrgen/docscan/internal/queue"
)

// Target is one of Webhook, CloudUpload or Share.
type Target interface {
	// Name identifies the target in reports and metrics.
	Name() string
	isTarget()
}

// Webhook posts a JSON summary of the export to URL. Event defaults to
// DefaultEvent.
type Webhook struct {
	URL   string `validate:"required,url"`
	Event string
}

// CloudUpload hands every artifact to a storage destination.
type CloudUpload struct {
	Via ShareTarget `validate:"required"`
}

// Share hands every artifact to a sharing destination, e.g. mail or messaging.
type Share struct {
	Via ShareTarget `validate:"required"`
}

func (Webhook) Name() string     { return "webhook" }
func (CloudUpload) Name() string { return "cloud_upload" }
func (Share) Name() string       { return "share" }

func (Webhook) isTarget()     {}
func (CloudUpload) isTarget() {}
func (Share) isTarget()       {}

// ShareTarget delivers one artifact file to a destination.
type ShareTarget interface {
	Name() string
	Send(ctx context.Context, documentID, artifact string) error
}

// FolderTarget copies artifacts into a directory, typically one watched by a
// sync client.
type FolderTarget struct {
	Dir string
}

func NewFolderTarget(dir string) *FolderTarget {
	return &FolderTarget{Dir: dir}
}

func (f *FolderTarget) Name() string {
	return "folder:" + f.Dir
}

func (f *FolderTarget) Send(ctx context.Context, documentID, artifact string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(artifact)
	if err != nil {
		return err
	}
	defer src.Close()

	dir := filepath.Join(f.Dir, documentID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	dst, err := os.Create(filepath.Join(dir, filepath.Base(artifact)))
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy %s: %w", artifact, err)
	}

	return dst.Close()
}

// QueueTarget announces artifacts on the event queue for downstream consumers.
type QueueTarget struct {
	Publisher queue.Publisher
}

func NewQueueTarget(publisher queue.Publisher) *QueueTarget {
	return &QueueTarget{Publisher: publisher}
}

func (q *QueueTarget) Name() string {
	return "queue"
}

func (q *QueueTarget) Send(ctx context.Context, documentID, artifact string) error {
	return q.Publisher.Publish(ctx, queue.NewEvent(queue.EventArtifactDispatched, documentID, map[string]string{
		"artifact": artifact,
		"file":     filepath.Base(artifact),
	}))
}
