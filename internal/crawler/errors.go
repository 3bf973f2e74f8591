package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a URL cannot be parsed or is not absolute.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNonHTML marks a response whose content type is not HTML.
	ErrNonHTML = errors.New("non-html response")
)

// FetchError is a transport-level failure (DNS, TLS, timeout, reset).
// HTTP error statuses are never reported as FetchError.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
