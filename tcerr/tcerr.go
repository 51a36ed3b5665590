// Package tcerr defines the error taxonomy surfaced by the Tencent Cloud
// SDK runtime: client-side failures, transport failures, structured service
// errors, unparseable responses, pagination failures, and credential
// provider failures.
package tcerr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorContext carries the server-derived details attached to a service or
// raw error. RequestID is the value reported by the API and is surfaced
// unchanged so traces can be correlated across retries.
type ErrorContext struct {
	// RequestID is the server-assigned request identifier, if any.
	RequestID string
	// Message is the human-readable message reported by the server.
	Message string
	// HTTPStatus is the HTTP status code of the response.
	HTTPStatus int
	// Headers are the response headers.
	Headers http.Header
	// Fields holds additional key-value pairs from the error payload.
	Fields map[string]string
}

// ClientErrorKind enumerates failures that originate inside the client
// before or after the wire exchange.
type ClientErrorKind int

const (
	// KindAlreadyShutdown: the client or provider was shut down.
	KindAlreadyShutdown ClientErrorKind = iota
	// KindInvalidURL: a request URL could not be parsed.
	KindInvalidURL
	// KindTooMuchData: a response body exceeded the buffering limit.
	KindTooMuchData
	// KindNotEnoughData: a response body was shorter than announced.
	KindNotEnoughData
	// KindWaiterFailed: a waiter's acceptor reported a terminal failure.
	KindWaiterFailed
	// KindWaiterTimeout: a waiter gave up before reaching the target state.
	KindWaiterTimeout
)

// String returns the stable name of the kind.
func (k ClientErrorKind) String() string {
	switch k {
	case KindAlreadyShutdown:
		return "alreadyShutdown"
	case KindInvalidURL:
		return "invalidURL"
	case KindTooMuchData:
		return "tooMuchData"
	case KindNotEnoughData:
		return "notEnoughData"
	case KindWaiterFailed:
		return "waiterFailed"
	case KindWaiterTimeout:
		return "waiterTimeout"
	}
	return "unknown"
}

// ClientError is a failure that originates inside the client.
type ClientError struct {
	Kind    ClientErrorKind
	Message string
}

func (e *ClientError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client error: %s", e.Kind)
	}
	return fmt.Sprintf("client error: %s: %s", e.Kind, e.Message)
}

// Is reports kind equality so callers can match with errors.Is against a
// bare &ClientError{Kind: ...}.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Kind == e.Kind
}

// AlreadyShutdown returns the error used for calls after Shutdown.
func AlreadyShutdown(what string) *ClientError {
	return &ClientError{Kind: KindAlreadyShutdown, Message: what}
}

// TooMuchData reports a response body exceeding the buffering limit.
func TooMuchData(limit int64) *ClientError {
	return &ClientError{Kind: KindTooMuchData, Message: fmt.Sprintf("response body exceeds %d bytes", limit)}
}

// NotEnoughData reports a short read of a response body.
func NotEnoughData(got, want int64) *ClientError {
	return &ClientError{Kind: KindNotEnoughData, Message: fmt.Sprintf("read %d of %d announced bytes", got, want)}
}

// WaiterFailed reports a terminal waiter failure.
func WaiterFailed(msg string) *ClientError {
	return &ClientError{Kind: KindWaiterFailed, Message: msg}
}

// WaiterTimeout reports a waiter that gave up.
func WaiterTimeout(msg string) *ClientError {
	return &ClientError{Kind: KindWaiterTimeout, Message: msg}
}

// SignerError is a failure produced by the request signer. The only kind the
// signer produces is an unparseable URL.
type SignerError struct {
	URL     string
	Message string
}

func (e *SignerError) Error() string {
	return fmt.Sprintf("signer: invalid URL %q: %s", e.URL, e.Message)
}

// InvalidURL returns a SignerError for a URL that is not RFC 3986 parseable.
func InvalidURL(rawURL, msg string) *SignerError {
	return &SignerError{URL: rawURL, Message: msg}
}

// TransportError wraps a failure from the HTTP client or a deadline expiry.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Cause)
}

// Unwrap exposes the underlying transport failure for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ServiceError is a structured error reported by the service. Code is the
// service error code (e.g. "AuthFailure.SignatureExpire"); Context carries
// the request id and message. Generated service clients map known codes to
// typed variants via a Table; unknown codes surface as a plain ServiceError.
type ServiceError struct {
	Code    string
	Context ErrorContext
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %s: %s (request id %q)", e.Code, e.Context.Message, e.Context.RequestID)
}

// RequestID returns the server-assigned request identifier.
func (e *ServiceError) RequestID() string {
	return e.Context.RequestID
}

// RawError is returned when the server response could not be parsed as the
// standard envelope. Body holds the raw response text.
type RawError struct {
	Status  int
	Body    []byte
	Context ErrorContext
}

func (e *RawError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("unparseable response (HTTP %d): %s", e.Status, body)
}

// PaginationError is a failure detected by the paginator itself, as opposed
// to per-page errors which surface unchanged.
type PaginationError struct {
	Message string
}

func (e *PaginationError) Error() string {
	return "pagination: " + e.Message
}

// Is matches any *PaginationError, so errors.Is(err, ErrTotalCountChanged)
// works on dynamically built instances.
func (e *PaginationError) Is(target error) bool {
	_, ok := target.(*PaginationError)
	return ok
}

// ErrTotalCountChanged is returned when a paginated listing reports a
// different total element count on a later page, implying the collection
// mutated under the reader.
var ErrTotalCountChanged = &PaginationError{Message: "total count changed between pages"}

// TotalCountChanged builds the detailed totalCountChanged error.
func TotalCountChanged(was, now int64) *PaginationError {
	return &PaginationError{Message: fmt.Sprintf("total count changed between pages: %d, then %d", was, now)}
}

// CredentialErrorKind enumerates credential provider failures.
type CredentialErrorKind int

const (
	// KindNoProvider: the provider has nothing to offer; a chain moves on
	// to the next candidate.
	KindNoProvider CredentialErrorKind = iota
	// KindInvalidCredentials: a credential source exists but is unusable;
	// a chain surfaces this immediately.
	KindInvalidCredentials
)

// String returns the stable name of the kind.
func (k CredentialErrorKind) String() string {
	switch k {
	case KindNoProvider:
		return "noProvider"
	case KindInvalidCredentials:
		return "invalidCredentials"
	}
	return "unknown"
}

// CredentialError is a failure to acquire signing credentials.
type CredentialError struct {
	Kind    CredentialErrorKind
	Message string
	Cause   error
}

func (e *CredentialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("credential provider: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("credential provider: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *CredentialError) Unwrap() error {
	return e.Cause
}

// Is reports kind equality.
func (e *CredentialError) Is(target error) bool {
	t, ok := target.(*CredentialError)
	return ok && t.Kind == e.Kind
}

// NoProvider returns a skippable credential failure.
func NoProvider(msg string) *CredentialError {
	return &CredentialError{Kind: KindNoProvider, Message: msg}
}

// NoProviderCause returns a skippable credential failure wrapping err.
func NoProviderCause(msg string, err error) *CredentialError {
	return &CredentialError{Kind: KindNoProvider, Message: msg, Cause: err}
}

// InvalidCredentials returns a non-skippable credential failure.
func InvalidCredentials(msg string) *CredentialError {
	return &CredentialError{Kind: KindInvalidCredentials, Message: msg}
}

// IsNoProvider reports whether err is a skippable noProvider failure.
func IsNoProvider(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce) && ce.Kind == KindNoProvider
}

// Table maps service-specific error codes to typed error constructors.
// Generated service clients supply an implementation; the pipeline falls
// back to a plain *ServiceError for codes the table does not know.
type Table interface {
	// Lookup returns a constructor for the given code, or nil when the
	// code is not modeled.
	Lookup(code string) func(ctx ErrorContext) error
}

// CodeTable is a map-backed Table.
type CodeTable map[string]func(ctx ErrorContext) error

// Lookup implements Table.
func (t CodeTable) Lookup(code string) func(ctx ErrorContext) error {
	return t[code]
}
