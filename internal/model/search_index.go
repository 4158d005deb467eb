package model

import "gorm.io/gorm"

type ContentType string

const (
	ContentTypeOCR   ContentType = "ocr"
	ContentTypeTitle ContentType = "title"
	ContentTypeTag   ContentType = "tag"
)

// SearchIndexEntry is a denormalized projection of searchable text. A nil PageID
// marks a document-level entry (title or tag).
type SearchIndexEntry struct {
	ID          uint        `gorm:"primaryKey;autoIncrement"`
	DocumentID  string      `gorm:"not null;index"`
	PageID      *string     `gorm:"index"`
	Content     string      `gorm:"type:text"`
	Folded      string      `gorm:"type:text" json:"-"`
	ContentType ContentType `gorm:"not null"`
}

func (SearchIndexEntry) TableName() string {
	return "search_index"
}

func (e *SearchIndexEntry) BeforeSave(tx *gorm.DB) error {
	e.Folded = Fold(e.Content)
	return nil
}
