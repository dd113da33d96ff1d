package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrLTMUnavailable is returned when the long-term memory backend is unavailable
	ErrLTMUnavailable = errors.New("long-term memory store unavailable")

	// ErrEmbedding is returned when the embedding service fails to produce a vector
	ErrEmbedding = errors.New("embedding service error")

	// ErrEmptyText is returned when there is nothing to embed
	ErrEmptyText = errors.New("text is empty")

	// ErrProfileFetch is returned when the profile fetcher cannot produce a profile
	ErrProfileFetch = errors.New("failed to fetch profile")

	// ErrProfileNotFound is returned when the fetcher ran but returned no profile data
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCompletion is returned when the completion service call fails
	ErrCompletion = errors.New("completion service error")

	// ErrCompletionUnavailable is returned when no completion service is configured
	ErrCompletionUnavailable = errors.New("completion service not configured")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Join wraps err under a sentinel so both match errors.Is.
func Join(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
