package members

import "errors"

var (
	ErrNotFound            = errors.New("member not found")
	ErrConflict            = errors.New("member with this dni or email already exists")
	ErrHasDocuments        = errors.New("member has documents")
	ErrInstitutionNotFound = errors.New("institution not found")
)
