// Package payload models Rollbar item payloads: the report body variants,
// extensible records with open field sets, and the envelope around them.
package payload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingInput is returned when a required constructor argument is nil.
	ErrMissingInput = errors.New("missing required input")
	// ErrEmptyCollection is returned when an error collection has no usable entries.
	ErrEmptyCollection = errors.New("empty collection")
	// ErrBlankInput is returned when a required string is empty or whitespace only.
	ErrBlankInput = errors.New("blank input")
	// ErrInvalidBody is returned when a decoded body does not hold exactly one variant.
	ErrInvalidBody = errors.New("invalid report body")
)

func missing(arg string) error {
	return fmt.Errorf("%w: %s", ErrMissingInput, arg)
}

func blank(arg string) error {
	return fmt.Errorf("%w: %s", ErrBlankInput, arg)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
