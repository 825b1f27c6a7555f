package services

import (
	"errors"
	"fmt"

	"church-site-backend/internal/repository"
)

var (
	// ErrValidation marks input rejected before any remote call
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate marks a write that collides with an existing record
	ErrDuplicate = repository.ErrDuplicate
	// ErrNotFound marks an operation on a record that does not exist
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidVideoID marks input that is neither a YouTube URL nor a video id
	ErrInvalidVideoID = errors.New("invalid YouTube URL or ID")
	// ErrTimeout marks a remote call abandoned at its deadline
	ErrTimeout = errors.New("operation timed out")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
