// Package apierr defines the request-pipeline error kinds shared by every
// component in the URL analysis service and their mapping to HTTP status
// codes, per the error handling design.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error along the propagation policy: which failures are
// terminal for a request and which map to which HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidURL
	KindQueueFull
	KindServiceUnavailable
	KindRequestTimeout
	KindWorkerCancelled
	KindUpstreamTransport
	KindRedirectLimitReached
	KindRedirectSchemeDenied
	KindCrossHostDenied
	KindBrowserAcquire
	KindBrowserNavigate
	KindScreenshotWrite
	KindTLSHandshake
	KindCertificateParse
	KindWhoisSubprocess
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidUrl"
	case KindQueueFull:
		return "QueueFull"
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	case KindRequestTimeout:
		return "RequestTimeout"
	case KindWorkerCancelled:
		return "WorkerCancelled"
	case KindUpstreamTransport:
		return "UpstreamTransport"
	case KindRedirectLimitReached:
		return "RedirectLimitReached"
	case KindRedirectSchemeDenied:
		return "RedirectSchemeDenied"
	case KindCrossHostDenied:
		return "CrossHostDenied"
	case KindBrowserAcquire:
		return "BrowserAcquire"
	case KindBrowserNavigate:
		return "BrowserNavigate"
	case KindScreenshotWrite:
		return "ScreenshotWrite"
	case KindTLSHandshake:
		return "TlsHandshake"
	case KindCertificateParse:
		return "CertificateParse"
	case KindWhoisSubprocess:
		return "WhoisSubprocess"
	default:
		return "Internal"
	}
}

// Error is an application error tagged with a Kind, wrapping an optional
// underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err is
// not an *Error (or wraps none).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error's Kind to the user-visible HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidURL:
		return http.StatusBadRequest
	case KindQueueFull:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindRequestTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
