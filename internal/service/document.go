package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/cache"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/store"
)

// PageInput is a processed page ready to be stored.
type PageInput struct {
	ImagePath string
	OcrText   string
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(store store.Store, blobs *blob.Store, cache cache.DocumentCache, publisher queue.Publisher) *DocumentService {
	return &DocumentService{
		store:     store,
		blobs:     blobs,
		cache:     cache,
		publisher: publisher,
		locks:     newKeyedMutex(),
	}
}

// DocumentService owns every mutation of documents, pages and the search index.
// Writers of one document are serialized and each mutation runs in one transaction.
type DocumentService struct {
	store     store.Store
	blobs     *blob.Store
	cache     cache.DocumentCache
	publisher queue.Publisher
	locks     *keyedMutex
}

// CreateDocument persists a document with its pages in order, indexing the name
// and every non-empty page text.
func (d *DocumentService) CreateDocument(ctx context.Context, name string, pages []PageInput) (*model.Document, error) {
	if strings.TrimSpace(name) == "" {
		name = defaultName(time.Now())
	}

	doc := &model.Document{
		ID:   uuid.New().String(),
		Name: strings.TrimSpace(name),
	}
	for i, page := range pages {
		doc.Pages = append(doc.Pages, model.Page{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			PageNumber: i + 1,
			ImagePath:  page.ImagePath,
			OcrText:    page.OcrText,
		})
	}
	doc.Recompute()

	err := d.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return err
		}

		entries := append(titleEntries(doc), ocrEntries(doc)...)
		return tx.CreateSearchIndexEntries(ctx, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	logrus.Infof("document %s created with %d pages", doc.ID, doc.PageCount)

	return doc, nil
}

// GetDocument retrieves a document with its pages. A cache miss is filled under
// the document lock, so a snapshot read before a mutation can never be cached
// after that mutation's invalidation.
func (d *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if doc, err := d.cache.GetDocument(ctx, id); err != nil {
		logrus.Warnf("document cache lookup failed: %v", err)
	} else if doc != nil {
		return doc, nil
	}

	unlock := d.locks.Lock(id.String())
	defer unlock()

	doc, err := d.store.GetDocument(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDocumentNotFound)
	}

	if err := d.cache.SetDocument(ctx, id, doc); err != nil {
		logrus.Warnf("document cache write failed: %v", err)
	}

	return doc, nil
}

// ListDocuments lists documents, most recently updated first.
func (d *DocumentService) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return d.store.ListDocuments(ctx)
}

// SearchDocuments returns the documents whose name, full text or search index
// content contains query, ignoring case. Each document appears once. An empty
// query lists every document.
func (d *DocumentService) SearchDocuments(ctx context.Context, query string) ([]*model.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return d.ListDocuments(ctx)
	}

	return d.store.SearchDocuments(ctx, query)
}

// RenameDocument changes the name and refreshes the title entry.
func (d *DocumentService) RenameDocument(ctx context.Context, id uuid.UUID, name string) (*model.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		doc.Name = name
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return err
		}
		if err := tx.DeleteSearchIndexEntries(ctx, id, model.ContentTypeTitle); err != nil {
			return err
		}
		return tx.CreateSearchIndexEntries(ctx, titleEntries(doc))
	})
}

// AddTag adds a document-level tag entry to the search index.
func (d *DocumentService) AddTag(ctx context.Context, id uuid.UUID, tag string) (*model.Document, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, ErrEmptyTag
	}

	return d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		if err := tx.CreateSearchIndexEntries(ctx, []*model.SearchIndexEntry{{
			DocumentID:  doc.ID,
			Content:     tag,
			ContentType: model.ContentTypeTag,
		}}); err != nil {
			return err
		}
		return tx.UpdateDocument(ctx, doc)
	})
}

// AddPages appends pages after the last page.
func (d *DocumentService) AddPages(ctx context.Context, id uuid.UUID, pages []PageInput) (*model.Document, error) {
	return d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		next := len(doc.Pages) + 1
		created := make([]*model.Page, 0, len(pages))
		for i, page := range pages {
			created = append(created, &model.Page{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				PageNumber: next + i,
				ImagePath:  page.ImagePath,
				OcrText:    page.OcrText,
			})
		}
		if err := tx.CreatePages(ctx, created); err != nil {
			return err
		}
		return d.refresh(ctx, tx, doc)
	})
}

// UpdatePageText replaces the recognized text of one page.
func (d *DocumentService) UpdatePageText(ctx context.Context, id uuid.UUID, pageNumber int, text string) (*model.Document, error) {
	return d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		page := findPage(doc, pageNumber)
		if page == nil {
			return ErrPageNotFound
		}
		page.OcrText = text
		if err := tx.UpdatePage(ctx, page); err != nil {
			return err
		}
		return d.refresh(ctx, tx, doc)
	})
}

// DeletePage removes one page and renumbers the rest to stay contiguous.
func (d *DocumentService) DeletePage(ctx context.Context, id uuid.UUID, pageNumber int) (*model.Document, error) {
	var imagePath string
	doc, err := d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		page := findPage(doc, pageNumber)
		if page == nil {
			return ErrPageNotFound
		}
		imagePath = page.ImagePath
		if err := tx.DeletePage(ctx, uuid.MustParse(page.ID)); err != nil {
			return err
		}
		return d.refresh(ctx, tx, doc)
	})
	if err != nil {
		return nil, err
	}

	d.deleteBlobs(imagePath)

	return doc, nil
}

// MovePage moves the page at from to position to, shifting the pages between.
func (d *DocumentService) MovePage(ctx context.Context, id uuid.UUID, from, to int) (*model.Document, error) {
	return d.mutate(ctx, id, func(tx store.Store, doc *model.Document) error {
		n := len(doc.Pages)
		if from < 1 || from > n || to < 1 || to > n {
			return fmt.Errorf("%w: %d -> %d of %d pages", ErrInvalidPageMove, from, to, n)
		}

		pages := make([]model.Page, 0, n)
		pages = append(pages, doc.Pages...)
		moved := pages[from-1]
		pages = append(pages[:from-1], pages[from:]...)
		pages = append(pages[:to-1], append([]model.Page{moved}, pages[to-1:]...)...)

		for i := range pages {
			if pages[i].PageNumber == i+1 {
				continue
			}
			pages[i].PageNumber = i + 1
			if err := tx.UpdatePage(ctx, &pages[i]); err != nil {
				return err
			}
		}
		return d.refresh(ctx, tx, doc)
	})
}

// DeleteDocument deletes a document with its pages, search index entries and
// page rasters.
func (d *DocumentService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	unlock := d.locks.Lock(id.String())
	defer unlock()

	var doc *model.Document
	err := d.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		doc, err = tx.GetDocument(ctx, id)
		if err != nil {
			return notFound(err, ErrDocumentNotFound)
		}

		if err := tx.DeleteSearchIndexEntries(ctx, id); err != nil {
			return err
		}
		if err := tx.DeletePages(ctx, id); err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, id)
	})
	if err != nil {
		return err
	}

	d.invalidate(ctx, id)

	paths := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		paths = append(paths, page.ImagePath)
	}
	d.deleteBlobs(paths...)

	if err := d.publisher.Publish(ctx, queue.NewEvent(queue.EventDocumentDeleted, doc.ID, map[string]string{
		"name": doc.Name,
	})); err != nil {
		logrus.Errorf("failed to publish deletion of document %s: %v", doc.ID, err)
	}

	logrus.Infof("document %s deleted", id)

	return nil
}

// mutate runs f on the current state of a document under its lock and inside a
// transaction, then returns the reloaded document.
func (d *DocumentService) mutate(ctx context.Context, id uuid.UUID, f func(tx store.Store, doc *model.Document) error) (*model.Document, error) {
	unlock := d.locks.Lock(id.String())
	defer unlock()

	var out *model.Document
	err := d.store.Transaction(ctx, func(tx store.Store) error {
		doc, err := tx.GetDocument(ctx, id)
		if err != nil {
			return notFound(err, ErrDocumentNotFound)
		}

		if err := f(tx, doc); err != nil {
			return err
		}

		out, err = tx.GetDocument(ctx, id)
		return err
	})
	d.invalidate(ctx, id)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// refresh renumbers the stored pages from 1, recomputes the derived fields and
// rebuilds the page entries of the search index.
func (d *DocumentService) refresh(ctx context.Context, tx store.Store, doc *model.Document) error {
	id := uuid.MustParse(doc.ID)
	pages, err := tx.ListPages(ctx, id)
	if err != nil {
		return err
	}

	doc.Pages = make([]model.Page, 0, len(pages))
	for i, page := range pages {
		if page.PageNumber != i+1 {
			page.PageNumber = i + 1
			if err := tx.UpdatePage(ctx, page); err != nil {
				return err
			}
		}
		doc.Pages = append(doc.Pages, *page)
	}
	doc.Recompute()

	if err := tx.UpdateDocument(ctx, doc); err != nil {
		return err
	}
	if err := tx.DeleteSearchIndexEntries(ctx, id, model.ContentTypeOCR); err != nil {
		return err
	}
	return tx.CreateSearchIndexEntries(ctx, ocrEntries(doc))
}

func (d *DocumentService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := d.cache.DeleteDocument(ctx, id); err != nil {
		logrus.Warnf("failed to invalidate cached document %s: %v", id, err)
	}
}

func (d *DocumentService) deleteBlobs(paths ...string) {
	if d.blobs == nil {
		return
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := d.blobs.Delete(path); err != nil {
			logrus.Errorf("failed to delete page image %s: %v", path, err)
		}
	}
}

func titleEntries(doc *model.Document) []*model.SearchIndexEntry {
	return []*model.SearchIndexEntry{{
		DocumentID:  doc.ID,
		Content:     doc.Name,
		ContentType: model.ContentTypeTitle,
	}}
}

func ocrEntries(doc *model.Document) []*model.SearchIndexEntry {
	var entries []*model.SearchIndexEntry
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.OcrText) == "" {
			continue
		}
		pageID := page.ID
		entries = append(entries, &model.SearchIndexEntry{
			DocumentID:  doc.ID,
			PageID:      &pageID,
			Content:     page.OcrText,
			ContentType: model.ContentTypeOCR,
		})
	}
	return entries
}

func findPage(doc *model.Document, pageNumber int) *model.Page {
	for i := range doc.Pages {
		if doc.Pages[i].PageNumber == pageNumber {
			return &doc.Pages[i]
		}
	}
	return nil
}

func defaultName(now time.Time) string {
	return "Scan " + now.Format("2006-01-02 15:04")
}

// notFound maps a missing record to the typed not-found error of the caller.
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
