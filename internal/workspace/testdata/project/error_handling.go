package sample

import (
	"errors"
	"fmt"
)

// Wrap annotates err with the failing step, keeping it unwrappable
func Wrap(err error, step string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Retryable reports whether a wrapped error is worth retrying
func Retryable(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// Root returns the innermost wrapped error
func Root(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
