package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/store"
)

const signatureNamespace = "signatures"

func NewSignatureService(store store.Store, blobs *blob.Store) *SignatureService {
	return &SignatureService{
		store: store,
		blobs: blobs,
	}
}

// SignatureService manages the signature library. At most one signature is
// the default at any time.
type SignatureService struct {
	mu    sync.Mutex
	store store.Store
	blobs *blob.Store
}

// CreateSignature stores a signature image. The first signature of the library
// becomes the default, as does any signature created with makeDefault.
func (s *SignatureService) CreateSignature(ctx context.Context, name string, img image.Image, makeDefault bool) (*model.Signature, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if img == nil {
		return nil, errors.New("signature image is empty")
	}

	key, err := s.blobs.PutImage(signatureNamespace, img)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sig := &model.Signature{
		ID:        uuid.New().String(),
		Name:      name,
		ImagePath: key,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		_, err := tx.GetDefaultSignature(ctx)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			makeDefault = true
		case err != nil:
			return err
		}

		if makeDefault {
			if err := tx.ClearDefaultSignatures(ctx); err != nil {
				return err
			}
		}
		sig.IsDefault = makeDefault

		return tx.CreateSignature(ctx, sig)
	})
	if err != nil {
		if rmErr := s.blobs.Delete(key); rmErr != nil {
			logrus.Errorf("failed to remove signature image %s: %v", key, rmErr)
		}
		return nil, fmt.Errorf("create signature: %w", err)
	}

	return sig, nil
}

func (s *SignatureService) ListSignatures(ctx context.Context) ([]*model.Signature, error) {
	return s.store.ListSignatures(ctx)
}

// GetDefaultSignature returns the default signature, nil when the library has none.
func (s *SignatureService) GetDefaultSignature(ctx context.Context) (*model.Signature, error) {
	sig, err := s.store.GetDefaultSignature(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sig, err
}

// SetDefaultSignature makes id the only default signature. The library is left
// unchanged when id does not exist.
func (s *SignatureService) SetDefaultSignature(ctx context.Context, id uuid.UUID) (*model.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sig *model.Signature
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.ClearDefaultSignatures(ctx); err != nil {
			return err
		}

		ok, err := tx.MarkDefaultSignature(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSignatureNotFound
		}

		sig, err = tx.GetSignature(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("signature %s is now the default", id)

	return sig, nil
}

// DeleteSignature removes a signature and its image. Deleting the default
// leaves the library without one.
func (s *SignatureService) DeleteSignature(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, err := s.store.GetSignature(ctx, id)
	if err != nil {
		return notFound(err, ErrSignatureNotFound)
	}

	if err := s.store.DeleteSignature(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Delete(sig.ImagePath); err != nil {
		logrus.Errorf("failed to remove signature image %s: %v", sig.ImagePath, err)
	}

	return nil
}

// SignatureImage loads the raster of a signature.
func (s *SignatureService) SignatureImage(ctx context.Context, id uuid.UUID) (image.Image, error) {
	sig, err := s.store.GetSignature(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSignatureNotFound)
	}

	return s.blobs.GetImage(sig.ImagePath)
}
