package institutions

import "errors"

var (
	ErrNotFound      = errors.New("institution not found")
	ErrConflict      = errors.New("institution with this CUIT already exists")
	ErrHasDependents = errors.New("institution has members or documents")
)
