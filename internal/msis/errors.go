package msis

import (
	"errors"
	"fmt"
)

// Error kinds. Every adapter failure wraps exactly one of these.
var (
	// ErrArgumentBinding reports a missing, unknown, duplicated or
	// wrongly typed argument, or an optional list that is not a list.
	ErrArgumentBinding = errors.New("argument binding failed")

	// ErrArgumentValidation reports an ap_a or flags list with the wrong
	// number of elements or an element of the wrong type.
	ErrArgumentValidation = errors.New("argument validation failed")

	// ErrModelUnavailable reports a build without the native model.
	ErrModelUnavailable = errors.New("nrlmsise-00 model not available")
)

// ArgumentError describes one rejected argument.
type ArgumentError struct {
	Kind error  // ErrArgumentBinding or ErrArgumentValidation
	Arg  string // argument name, empty when the failure is about arity
	Msg  string
}

func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Arg, e.Msg)
}

func (e *ArgumentError) Unwrap() error {
	return e.Kind
}

func bindingError(arg, format string, a ...any) error {
	return &ArgumentError{Kind: ErrArgumentBinding, Arg: arg, Msg: fmt.Sprintf(format, a...)}
}

func validationError(arg, msg string) error {
	return &ArgumentError{Kind: ErrArgumentValidation, Arg: arg, Msg: msg}
}

// Validation messages. Clients match on these strings; do not reword.
const (
	msgApWrongSize     = "ap list has wrong size, must contain 7 elements."
	msgApBadElement    = "ap list has an invalid element, must be int or float."
	msgFlagsWrongSize  = "nrlmsise flags list ha wrong size, expected 24 elements"
	msgFlagsBadElement = "nrlmsise flags list has an invalid element, must be int."
)
