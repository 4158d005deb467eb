// Package blob keeps page and signature rasters on disk. Records reference
// rasters by key; the bytes on disk pass through a compress codec so the store
// never assumes plaintext files.
package blob

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/emrgen/docscan/internal/compress"
	"github.com/emrgen/docscan/internal/imaging"
)

var ErrInvalidKey = errors.New("invalid blob key")

type Store struct {
	dir   string
	codec compress.Compress
}

func NewStore(dir string, codec compress.Compress) *Store {
	if codec == nil {
		codec = compress.NewNop()
	}
	return &Store{
		dir:   dir,
		codec: codec,
	}
}

func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	return nil
}

// PutImage stores img as PNG under a new key in the given namespace.
func (s *Store) PutImage(namespace string, img image.Image) (string, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	key := filepath.ToSlash(filepath.Join(namespace, uuid.New().String()+".png"))
	if err := s.Put(key, data); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) Put(key string, data []byte) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	encoded, err := s.codec.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode blob %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(key string) ([]byte, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	return s.codec.Decode(data)
}

func (s *Store) GetImage(key string) (image.Image, error) {
	data, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return imaging.DecodeBytes(data)
}

// Delete removes a blob; a missing blob is not an error.
func (s *Store) Delete(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// DeleteNamespace removes every blob under namespace.
func (s *Store) DeleteNamespace(namespace string) error {
	path, err := s.Path(namespace)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}

// Path resolves key inside the store directory, rejecting keys that escape it.
func (s *Store) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, clean), nil
}
