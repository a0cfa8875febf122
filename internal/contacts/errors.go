package contacts

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the contact does not exist or belongs to another user.
var ErrNotFound = errors.New("contact not found")

// ValidationError carries field-level validation failures keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}
