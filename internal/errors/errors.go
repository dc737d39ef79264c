package errors

import (
	"errors"
	"fmt"
)

// Common error types for the bank link server
var (
	// Aggregator errors
	ErrMalformedUpstream = errors.New("malformed upstream error body")
	ErrMissingToken      = errors.New("no access token available")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoRequisition   = errors.New("no requisition in session")

	// Configuration errors
	ErrMissingCredentials = errors.New("aggregator credentials not configured")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
