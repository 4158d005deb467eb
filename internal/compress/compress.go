package compress

import (
	"errors"
	"fmt"
)

var ErrUnknownCompression = errors.New("unknown compression")

// Compress encodes and decodes opaque payloads before they are persisted.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// New returns the codec registered under name.
func New(name string) (Compress, error) {
	switch name {
	case "", "nop", "none":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "brotli":
		return NewBrotli(), nil
	case "lz4":
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, name)
	}
}
