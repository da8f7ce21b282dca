// Package errors provides the structured error type shared between the
// scraper and the feed server.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies what went wrong during an extraction or render.
type Kind int

const (
	// KindTransport is a network failure or a non-success HTTP status on a
	// listing or article fetch.
	KindTransport Kind = iota + 1
	// KindMissingAttribute is an expected element attribute (an anchor's
	// href, an image's src) that wasn't there.
	KindMissingAttribute
	// KindDateParse is publication-date text that no parser recovered.
	KindDateParse
	// KindSerialization is a broken invariant while building the feed
	// document. It signals a bug, not a runtime condition.
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMissingAttribute:
		return "missing attribute"
	case KindDateParse:
		return "date parse"
	case KindSerialization:
		return "serialization"
	}
	return "unknown"
}

// Error carries a kind for the scraping side and a status for the HTTP side.
type Error struct {
	Kind   Kind
	Status int
	Err    error // The error this wraps
}

func (e *Error) Error() string {
	if e.Kind == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an [*Error] from whatever it's given: a [Kind], an int status, a
// string or error for the cause.
func E(args ...any) *Error {
	ret := &Error{
		Status: http.StatusInternalServerError,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			ret.Kind = arg
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		}
	}

	return ret
}

// IsKind reports whether err is or wraps an [*Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	e := &Error{}
	return errors.As(err, &e) && e.Kind == kind
}
