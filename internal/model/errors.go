package model

import (
	"errors"
	"fmt"
)

// ValidationError marks input that was rejected before reaching the store.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
