package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a field that failed a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNotFound is returned when a referenced producer or cheese does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IsValidation reports whether err carries at least one ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err carries an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ValidationErrors flattens err into the ValidationErrors it carries,
// following both wrapped and joined errors.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *ValidationError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := x.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
