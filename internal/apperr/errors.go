// Package apperr defines the error values shared by the service and transport layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidChapter = errors.New("invalid chapter")
)
