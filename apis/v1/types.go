// Package v1 declares the JSON bodies of the docscan HTTP API.
package v1

import "time"

type Page struct {
	ID         string `json:"id"`
	PageNumber int    `json:"pageNumber"`
	ImagePath  string `json:"imagePath"`
	OcrText    string `json:"ocrText"`
}

type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PageCount int       `json:"pageCount"`
	FullText  string    `json:"fullText,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Pages     []Page    `json:"pages,omitempty"`
}

type Signature struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// Outcome is the structured result of a batch: succeeded, partial or failed.
type Outcome struct {
	Status    string   `json:"status"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

type ScanResponse struct {
	Document *Document `json:"document,omitempty"`
	Skipped  int       `json:"skipped"`
	Outcome
}

type ListDocumentsResponse struct {
	Documents []Document `json:"documents"`
}

type UpdateDocumentRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Tag  *string `json:"tag,omitempty" validate:"omitempty,min=1,max=255"`
}

type UpdatePageRequest struct {
	MoveTo *int    `json:"moveTo,omitempty" validate:"omitempty,min=1"`
	Text   *string `json:"text,omitempty"`
}

type ExportRequest struct {
	Format         string `json:"format" validate:"required,oneof=pdf jpeg jpg txt text xlsx spreadsheet table"`
	BaseName       string `json:"baseName,omitempty"`
	IncludeOCRText bool   `json:"includeOcrText,omitempty"`
	Quality        *int   `json:"quality,omitempty"`
	PageNumber     int    `json:"pageNumber,omitempty"`
}

type ExportResponse struct {
	Artifacts []string `json:"artifacts"`
	Outcome
}

// Target is one dispatch destination. Type is webhook, cloud_upload or share;
// Via selects the share target of the last two: the server's share folder or
// the event queue.
type Target struct {
	Type  string `json:"type" validate:"required,oneof=webhook cloud_upload share"`
	URL   string `json:"url,omitempty" validate:"omitempty,url"`
	Event string `json:"event,omitempty"`
	Via   string `json:"via,omitempty" validate:"omitempty,oneof=folder queue"`
}

type DispatchRequest struct {
	Export  ExportRequest `json:"export"`
	Targets []Target      `json:"targets" validate:"required,min=1,dive"`
}

type DispatchResponse struct {
	Export   ExportResponse `json:"export"`
	Dispatch Outcome        `json:"dispatch"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
