package service

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/emrgen/docscan/internal/store"
	"github.com/emrgen/docscan/internal/tester"
)

func newSignatureService() *SignatureService {
	return NewSignatureService(store.NewGormStore(tester.TestDB()), tester.Blobs())
}

func signatureImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 8, 3))
}

func defaults(t *testing.T, svc *SignatureService) []string {
	sigs, err := svc.ListSignatures(context.TODO())
	assert.NoError(t, err)

	var ids []string
	for _, sig := range sigs {
		if sig.IsDefault {
			ids = append(ids, sig.ID)
		}
	}
	return ids
}

func TestSignatureService_CreateSignature(t *testing.T) {
	tester.Setup()
	svc := newSignatureService()
	ctx := context.TODO()

	first, err := svc.CreateSignature(ctx, "initials", signatureImage(), false)
	assert.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateSignature(ctx, "full", signatureImage(), false)
	assert.NoError(t, err)
	assert.False(t, second.IsDefault)
	assert.Equal(t, []string{first.ID}, defaults(t, svc))

	third, err := svc.CreateSignature(ctx, "formal", signatureImage(), true)
	assert.NoError(t, err)
	assert.Equal(t, []string{third.ID}, defaults(t, svc))

	img, err := svc.SignatureImage(ctx, uuid.MustParse(second.ID))
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 3), img.Bounds())

	_, err = svc.CreateSignature(ctx, " ", signatureImage(), false)
	assert.Error(t, err)
}

func TestSignatureService_SetDefaultSignature(t *testing.T) {
	tester.Setup()
	svc := newSignatureService()
	ctx := context.TODO()

	a, err := svc.CreateSignature(ctx, "a", signatureImage(), false)
	assert.NoError(t, err)
	b, err := svc.CreateSignature(ctx, "b", signatureImage(), false)
	assert.NoError(t, err)

	_, err = svc.SetDefaultSignature(ctx, uuid.MustParse(a.ID))
	assert.NoError(t, err)
	got, err := svc.SetDefaultSignature(ctx, uuid.MustParse(b.ID))
	assert.NoError(t, err)
	assert.True(t, got.IsDefault)

	assert.Equal(t, []string{b.ID}, defaults(t, svc))

	def, err := svc.GetDefaultSignature(ctx)
	assert.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)

	_, err = svc.SetDefaultSignature(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSignatureNotFound)
	assert.Equal(t, []string{b.ID}, defaults(t, svc))
}

func TestSignatureService_ConcurrentSetDefault(t *testing.T) {
	tester.Setup()
	svc := newSignatureService()
	ctx := context.TODO()

	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c", "d"} {
		sig, err := svc.CreateSignature(ctx, name, signatureImage(), false)
		assert.NoError(t, err)
		ids = append(ids, uuid.MustParse(sig.ID))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.SetDefaultSignature(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Len(t, defaults(t, svc), 1)
}

func TestSignatureService_DeleteSignature(t *testing.T) {
	tester.Setup()
	svc := newSignatureService()
	ctx := context.TODO()

	sig, err := svc.CreateSignature(ctx, "only", signatureImage(), false)
	assert.NoError(t, err)
	id := uuid.MustParse(sig.ID)

	assert.NoError(t, svc.DeleteSignature(ctx, id))

	def, err := svc.GetDefaultSignature(ctx)
	assert.NoError(t, err)
	assert.Nil(t, def)

	_, err = tester.Blobs().Get(sig.ImagePath)
	assert.Error(t, err)

	err = svc.DeleteSignature(ctx, id)
	assert.True(t, errors.Is(err, ErrSignatureNotFound))
}

func TestSignatureService_SingleDefaultAcrossWriters(t *testing.T) {
	tester.Setup()
	svc := newSignatureService()
	ctx := context.TODO()

	first, err := svc.CreateSignature(ctx, "initials", signatureImage(), true)
	assert.NoError(t, err)
	second, err := svc.CreateSignature(ctx, "full", signatureImage(), false)
	assert.NoError(t, err)

	// another process marking without clearing must be rejected by the database
	other := store.NewGormStore(tester.TestDB())
	_, err = other.MarkDefaultSignature(ctx, uuid.MustParse(second.ID))
	assert.Error(t, err)
	assert.Equal(t, []string{first.ID}, defaults(t, svc))

	sig, err := svc.SetDefaultSignature(ctx, uuid.MustParse(second.ID))
	assert.NoError(t, err)
	assert.True(t, sig.IsDefault)
	assert.Equal(t, []string{second.ID}, defaults(t, svc))
}
