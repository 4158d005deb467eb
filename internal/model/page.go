package model

import "time"

// Page is one physical page within a Document. Page numbers start at 1 and stay
// contiguous within a document.
type Page struct {
	ID         string `gorm:"primaryKey;not null"`
	DocumentID string `gorm:"not null;index:idx_pages_document_number"`
	PageNumber int    `gorm:"not null;index:idx_pages_document_number"`
	ImagePath  string
	OcrText    string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Page) TableName() string {
	return "pages"
}
