package query

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind is the failure class of a page fetch.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindServer
	KindMalformedResponse
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Errors built by NetworkError, ServerError and
// MalformedResponseError wrap exactly one of them.
var (
	ErrNetwork           = errors.New("network error")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// Text codes attached to the go-errors values.
const (
	TextCodeNetwork           = "LIST_NETWORK_ERROR"
	TextCodeServer            = "LIST_SERVER_ERROR"
	TextCodeMalformedResponse = "LIST_MALFORMED_RESPONSE"
)

var errNegativeTotal = errors.New("total must be non-negative")

// statusError carries the HTTP status of a ServerError.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrServer, e.status)
}

func (e *statusError) Is(target error) bool {
	return target == ErrServer
}

// NetworkError reports that no response reached the client. Timeouts and
// cancellations belong here too.
func NetworkError(cause error) error {
	src := ErrNetwork
	if cause != nil {
		src = fmt.Errorf("%w: %w", ErrNetwork, cause)
	}
	return goerrors.Wrap(src, goerrors.CategoryExternal, "list resource unreachable").
		WithTextCode(TextCodeNetwork)
}

// ServerError reports a non-success status. body is kept as metadata, trimmed.
func ServerError(status int, body string) error {
	if len(body) > 512 {
		body = body[:512]
	}
	return goerrors.Wrap(&statusError{status: status}, goerrors.CategoryExternal, "list resource returned "+statusText(status)).
		WithCode(status).
		WithTextCode(TextCodeServer).
		WithMetadata(map[string]any{"status": status, "body": body})
}

// MalformedResponseError reports a response that does not have the Page shape.
func MalformedResponseError(cause error) error {
	src := ErrMalformedResponse
	if cause != nil {
		src = fmt.Errorf("%w: %w", ErrMalformedResponse, cause)
	}
	return goerrors.Wrap(src, goerrors.CategoryExternal, "list resource returned an invalid page").
		WithTextCode(TextCodeMalformedResponse)
}

// KindOf classifies err. nil yields KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrServer):
		return KindServer
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status carried by a ServerError, or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

// classify wraps errors a ResourceAPI returned without a kind as network errors.
func classify(err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	return NetworkError(err)
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%d %s", status, text)
	}
	return fmt.Sprintf("status %d", status)
}
