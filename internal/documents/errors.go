package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrOwnerNotFound indicates the member or institution a document
	// references does not exist.
	ErrOwnerNotFound = errors.New("document owner not found")
)
