package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Document is one scanned artifact. It exclusively owns its pages; PageCount and
// FullText are derived from them and recomputed on every page change.
type Document struct {
	ID        string `gorm:"primaryKey;not null"`
	Name      string `gorm:"not null;index"`
	PageCount int    `gorm:"not null;default:0"`
	FullText  string `gorm:"type:text"`
	// lowercased copies for search, folded in Go so every database matches alike
	SearchName string `gorm:"index" json:"-"`
	SearchText string `gorm:"type:text" json:"-"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
	Pages     []Page    `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Document) TableName() string {
	return "documents"
}

// BeforeSave keeps the search columns in step with name and full text.
func (d *Document) BeforeSave(tx *gorm.DB) error {
	d.SearchName = Fold(d.Name)
	d.SearchText = Fold(d.FullText)
	return nil
}

// SortPages orders the loaded pages by page number.
func (d *Document) SortPages() {
	sort.SliceStable(d.Pages, func(i, j int) bool {
		return d.Pages[i].PageNumber < d.Pages[j].PageNumber
	})
}

// Recompute refreshes the derived fields from the loaded pages.
func (d *Document) Recompute() {
	d.SortPages()
	texts := make([]string, 0, len(d.Pages))
	for _, page := range d.Pages {
		texts = append(texts, page.OcrText)
	}

	d.PageCount = len(d.Pages)
	d.FullText = strings.Join(texts, "\n")
}

func (d *Document) MarshalBinary() ([]byte, error) {
	return json.Marshal(d)
}

// Fold lowercases s for case-insensitive matching, including non-ASCII letters.
func Fold(s string) string {
	return strings.ToLower(s)
}
