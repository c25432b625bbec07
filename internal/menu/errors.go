package menu

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a dish, category or allergen id does not resolve.
	ErrNotFound = errors.New("not found")

	ErrNoImage = errors.New("dish has no image")

	// ErrImageDiscarded marks an upload that failed after the previous image
	// of the dish had already been deleted.
	ErrImageDiscarded = errors.New("previous image deleted")
)

// ValidationError is a caller mistake. The operation was not applied.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CategoryInUseError blocks deleting a category that still has dishes.
type CategoryInUseError struct {
	CategoryID uint
	Dishes     int64
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category still has %d dishes and cannot be deleted", e.Dishes)
}
