// internal/errors/errors.go
package appErrors

import "fmt"

// ErrRecordNotFound is a sentinel error
type ErrRecordNotFound struct {
	Slug string
}

func (e *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("redirect record %q not found", e.Slug)
}

// Helper constructor
func NewRecordNotFound(slug string) error {
	return &ErrRecordNotFound{Slug: slug}
}

// ErrUpstream wraps a non-2xx response from the record store.
type ErrUpstream struct {
	Status int
	Body   string
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("record store returned %d: %s", e.Status, e.Body)
}

func NewUpstream(status int, body string) error {
	return &ErrUpstream{Status: status, Body: body}
}
