package orm

import "errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrEmptyFilter    = errors.New("delete without filter")
	ErrInvalidRelated = errors.New("invalid related record")
	ErrConflict       = errors.New("record conflicts with an existing one")
	ErrValidation     = errors.New("validation failed")
)
