package service

import "errors"

var (
	// ErrDocumentNotFound is returned when no document has the given id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrPageNotFound is returned when a document has no page with the given number.
	ErrPageNotFound = errors.New("page not found")
	// ErrSignatureNotFound is returned when no signature has the given id.
	ErrSignatureNotFound = errors.New("signature not found")
	// ErrInvalidPageMove is returned when a page move targets a position outside the document.
	ErrInvalidPageMove = errors.New("invalid page move")
	// ErrEmptyTag is returned when a blank tag is added.
	ErrEmptyTag  = errors.New("tag is empty")
	ErrEmptyName = errors.New("name is empty")
)
