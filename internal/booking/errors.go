package booking

import "errors"

var (
	// ErrInvalidRange is returned when a requested range is empty or inverted.
	ErrInvalidRange = errors.New("booking: start must be before end")
	// ErrSlotConflict is returned when the requested range overlaps an
	// existing reservation in the same pool.
	ErrSlotConflict = errors.New("booking: slot already reserved")
	// ErrUnknownResource is returned when the referenced resource is not in
	// the catalog.
	ErrUnknownResource = errors.New("booking: unknown resource")
	// ErrPersistenceUnavailable is returned when the backing collection store
	// cannot be reached. The reservation is not created; callers may retry.
	ErrPersistenceUnavailable = errors.New("booking: persistence unavailable")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrUnknownResource):
		return "unknown_resource"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "persistence_unavailable"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
