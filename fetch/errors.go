package fetch

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no resolvable product behind a URL (HTTP 404).
type ErrNotFound struct {
	URL string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("not_found: %s", e.URL)
}

// ErrTransient indicates a timeout or retryable server failure that
// persisted through the bounded retry budget.
type ErrTransient struct {
	Status int
	Err    error
}

func (e ErrTransient) Error() string {
	if e.Err != nil {
		return fmt.Errorf("transient: status %d: %w", e.Status, e.Err).Error()
	}
	return fmt.Sprintf("transient: status %d", e.Status)
}

func (e ErrTransient) Unwrap() error {
	return e.Err
}

// ErrAuth indicates a supplier login failure. Never fatal: the adapter
// continues in degraded mode.
type ErrAuth struct {
	Supplier string
	Err      error
}

func (e ErrAuth) Error() string {
	return fmt.Errorf("auth: supplier %s: %w", e.Supplier, e.Err).Error()
}

func (e ErrAuth) Unwrap() error {
	return e.Err
}

// TypeLabel maps an error to a stable category label for run accounting.
func TypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var transient ErrTransient
	if errors.As(err, &transient) {
		return "transient"
	}
	var auth ErrAuth
	if errors.As(err, &auth) {
		return "auth"
	}
	return "other"
}
