package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emrgen/docscan/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Create(doc).Error
}

func (g *GormStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).
		Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("page_number asc") }).
		Where("id = ?", id.String()).
		First(&doc).Error
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (g *GormStore) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	var docs []*model.Document
	err := g.db.WithContext(ctx).Order("updated_at desc").Find(&docs).Error
	return docs, err
}

// SearchDocuments matches the folded query as a substring of the folded search
// columns. The union of the document columns and the search index is resolved in
// one query, so a document reachable both ways is returned once.
func (g *GormStore) SearchDocuments(ctx context.Context, query string) ([]*model.Document, error) {
	pattern := "%" + escapeLike(model.Fold(query)) + "%"

	indexed := g.db.Model(&model.SearchIndexEntry{}).
		Select("document_id").
		Where(`folded LIKE ? ESCAPE '\'`, pattern)

	var docs []*model.Document
	err := g.db.WithContext(ctx).
		Where(`search_name LIKE ? ESCAPE '\' OR search_text LIKE ? ESCAPE '\' OR id IN (?)`, pattern, pattern, indexed).
		Order("updated_at desc").
		Find(&docs).Error
	if err != nil {
		logrus.Errorf("error searching documents: %v", err)
		return nil, err
	}

	return docs, nil
}

// UpdateDocument writes the mutable columns of doc; pages are managed through PageStore.
func (g *GormStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	doc.UpdatedAt = time.Now()
	return g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", doc.ID).
		Updates(map[string]any{
			"name":        doc.Name,
			"page_count":  doc.PageCount,
			"full_text":   doc.FullText,
			"search_name": model.Fold(doc.Name),
			"search_text": model.Fold(doc.FullText),
			"updated_at":  doc.UpdatedAt,
		}).Error
}

func (g *GormStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Document{}).Error
}

func (g *GormStore) CreatePages(ctx context.Context, pages []*model.Page) error {
	if len(pages) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Create(pages).Error
}

func (g *GormStore) ListPages(ctx context.Context, docID uuid.UUID) ([]*model.Page, error) {
	var pages []*model.Page
	err := g.db.WithContext(ctx).Where("document_id = ?", docID.String()).Order("page_number asc").Find(&pages).Error
	return pages, err
}

func (g *GormStore) UpdatePage(ctx context.Context, page *model.Page) error {
	return g.db.WithContext(ctx).Save(page).Error
}

func (g *GormStore) DeletePage(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Page{}).Error
}

func (g *GormStore) DeletePages(ctx context.Context, docID uuid.UUID) error {
	return g.db.WithContext(ctx).Where("document_id = ?", docID.String()).Delete(&model.Page{}).Error
}

func (g *GormStore) CreateSearchIndexEntries(ctx context.Context, entries []*model.SearchIndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Create(entries).Error
}

func (g *GormStore) ListSearchIndexEntries(ctx context.Context, docID uuid.UUID) ([]*model.SearchIndexEntry, error) {
	var entries []*model.SearchIndexEntry
	err := g.db.WithContext(ctx).Where("document_id = ?", docID.String()).Order("id asc").Find(&entries).Error
	return entries, err
}

func (g *GormStore) DeleteSearchIndexEntries(ctx context.Context, docID uuid.UUID, types ...model.ContentType) error {
	tx := g.db.WithContext(ctx).Where("document_id = ?", docID.String())
	if len(types) > 0 {
		tx = tx.Where("content_type IN ?", types)
	}
	return tx.Delete(&model.SearchIndexEntry{}).Error
}

func (g *GormStore) CreateSignature(ctx context.Context, sig *model.Signature) error {
	return g.db.WithContext(ctx).Create(sig).Error
}

func (g *GormStore) GetSignature(ctx context.Context, id uuid.UUID) (*model.Signature, error) {
	var sig model.Signature
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&sig).Error
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (g *GormStore) GetDefaultSignature(ctx context.Context) (*model.Signature, error) {
	var sig model.Signature
	err := g.db.WithContext(ctx).Where("is_default = ?", true).First(&sig).Error
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (g *GormStore) ListSignatures(ctx context.Context) ([]*model.Signature, error) {
	var sigs []*model.Signature
	err := g.db.WithContext(ctx).Order("created_at asc").Find(&sigs).Error
	return sigs, err
}

func (g *GormStore) ClearDefaultSignatures(ctx context.Context) error {
	return g.db.WithContext(ctx).Model(&model.Signature{}).
		Where("is_default = ?", true).
		Update("is_default", false).Error
}

func (g *GormStore) MarkDefaultSignature(ctx context.Context, id uuid.UUID) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Signature{}).
		Where("id = ?", id.String()).
		Update("is_default", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (g *GormStore) DeleteSignature(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Signature{}).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
