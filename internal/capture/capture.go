// Package capture acquires raw page images for the scan pipeline.
package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/emrgen/docscan/internal/imaging"
)

const minPollInterval = time.Millisecond

// Frame is one captured page with the page corners detected by the source,
// if any. Corners are top-left, top-right, bottom-right, bottom-left.
type Frame struct {
	Image   image.Image
	Corners []imaging.Point
}

// Source yields frames until it returns io.EOF.
type Source interface {
	Capture(ctx context.Context) (Frame, error)
}

// FileSource imports image files in the given order.
type FileSource struct {
	mu    sync.Mutex
	paths []string
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

func (f *FileSource) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	f.mu.Lock()
	if len(f.paths) == 0 {
		f.mu.Unlock()
		return Frame{}, io.EOF
	}
	path := f.paths[0]
	f.paths = f.paths[1:]
	f.mu.Unlock()

	img, err := imaging.DecodeFile(path)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Image: img}, nil
}

// Drain captures every frame of src.
func Drain(ctx context.Context, src Source) ([]Frame, error) {
	var frames []Frame
	for {
		frame, err := src.Capture(ctx)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// WaitUntilStable polls probe every interval and returns once it has reported
// true continuously for settle. A camera source uses it to hold the shutter
// until focus and exposure stop changing.
func WaitUntilStable(ctx context.Context, probe func() bool, interval, settle time.Duration) error {
	if interval <= 0 {
		interval = settle
	}
	if interval < minPollInterval {
		interval = minPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var stableSince time.Time
	for {
		if probe() {
			if stableSince.IsZero() {
				stableSince = time.Now()
			}
			if time.Since(stableSince) >= settle {
				return nil
			}
		} else {
			stableSince = time.Time{}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
