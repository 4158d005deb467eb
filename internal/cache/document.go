package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/emrgen/docscan/internal/model"
)

// DocumentCache is a read cache for documents with their pages.
type DocumentCache interface {
	// GetDocument gets a document from the cache, nil on a miss.
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// SetDocument sets a document in the cache.
	SetDocument(ctx context.Context, id uuid.UUID, doc *model.Document) error
	// DeleteDocument deletes a document from the cache.
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

var _ DocumentCache = NopDocumentCache{}

// NopDocumentCache caches nothing.
type NopDocumentCache struct{}

func NewNopDocumentCache() NopDocumentCache {
	return NopDocumentCache{}
}

func (NopDocumentCache) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return nil, nil
}

func (NopDocumentCache) SetDocument(ctx context.Context, id uuid.UUID, doc *model.Document) error {
	return nil
}

func (NopDocumentCache) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return nil
}
