package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/emrgen/docscan/internal/model"
)

type Store interface {
	DocumentStore
	PageStore
	SearchIndexStore
	SignatureStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type DocumentStore interface {
	// CreateDocument creates a new document together with its loaded pages.
	CreateDocument(ctx context.Context, doc *model.Document) error
	// GetDocument retrieves a document by ID with its pages in page order.
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// ListDocuments retrieves every document, most recently updated first.
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	// SearchDocuments retrieves documents matching the query in name, full text or search index.
	SearchDocuments(ctx context.Context, query string) ([]*model.Document, error)
	// UpdateDocument updates the document row, not its pages.
	UpdateDocument(ctx context.Context, doc *model.Document) error
	// DeleteDocument deletes a document by ID.
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

type PageStore interface {
	// CreatePages creates pages.
	CreatePages(ctx context.Context, pages []*model.Page) error
	// ListPages retrieves the pages of a document in page order.
	ListPages(ctx context.Context, docID uuid.UUID) ([]*model.Page, error)
	// UpdatePage updates a page.
	UpdatePage(ctx context.Context, page *model.Page) error
	// DeletePage deletes a page by ID.
	DeletePage(ctx context.Context, id uuid.UUID) error
	// DeletePages deletes every page of a document.
	DeletePages(ctx context.Context, docID uuid.UUID) error
}

type SearchIndexStore interface {
	// CreateSearchIndexEntries creates search index entries.
	CreateSearchIndexEntries(ctx context.Context, entries []*model.SearchIndexEntry) error
	// ListSearchIndexEntries retrieves the entries of a document.
	ListSearchIndexEntries(ctx context.Context, docID uuid.UUID) ([]*model.SearchIndexEntry, error)
	// DeleteSearchIndexEntries deletes entries of a document, all of them when no content type is given.
	DeleteSearchIndexEntries(ctx context.Context, docID uuid.UUID, types ...model.ContentType) error
}

type SignatureStore interface {
	// CreateSignature creates a new signature.
	CreateSignature(ctx context.Context, sig *model.Signature) error
	// GetSignature retrieves a signature by ID.
	GetSignature(ctx context.Context, id uuid.UUID) (*model.Signature, error)
	// GetDefaultSignature retrieves the default signature.
	GetDefaultSignature(ctx context.Context) (*model.Signature, error)
	// ListSignatures retrieves every signature.
	ListSignatures(ctx context.Context) ([]*model.Signature, error)
	// ClearDefaultSignatures clears the default flag on every signature.
	ClearDefaultSignatures(ctx context.Context) error
	// MarkDefaultSignature sets the default flag on one signature and reports whether it existed.
	MarkDefaultSignature(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteSignature deletes a signature by ID.
	DeleteSignature(ctx context.Context, id uuid.UUID) error
}
