package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/social/internal/repositories"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrTransient     = errors.New("transient storage failure")
)

// storageErr classifies a repository error. Missing records become ErrNotFound,
// anything else is treated as a transient store failure. Both wrap the cause.
func storageErr(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
