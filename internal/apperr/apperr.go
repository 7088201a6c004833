// Package apperr classifies generation failures so the HTTP layer can map them
// to a status code and a machine-readable category.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindUpstream
	KindDataShape
	KindTimeout
)

// Type returns the category reported in error bodies.
func (k Kind) Type() string {
	switch k {
	case KindConfig:
		return "ConfigurationError"
	case KindUpstream:
		return "UpstreamError"
	case KindDataShape:
		return "DataShapeError"
	case KindTimeout:
		return "GenerationTimeout"
	default:
		return "InternalError"
	}
}

type Error struct {
	Kind Kind
	// UpstreamStatus is the HTTP status returned by a generation API, 0 if none.
	UpstreamStatus int
	Msg            string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error to the HTTP status the backend responds with.
func (e *Error) Status() int {
	switch e.Kind {
	case KindConfig:
		return http.StatusServiceUnavailable
	case KindUpstream:
		if e.UpstreamStatus >= 400 && e.UpstreamStatus <= 599 {
			return e.UpstreamStatus
		}
		return http.StatusInternalServerError
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func Config(format string, v ...interface{}) *Error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, v...)}
}

func Upstream(status int, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, UpstreamStatus: status, Msg: msg, Err: err}
}

func DataShape(msg string, err error) *Error {
	return &Error{Kind: KindDataShape, Msg: msg, Err: err}
}

func Timeout(msg string, err error) *Error {
	return &Error{Kind: KindTimeout, Msg: msg, Err: err}
}

// From returns the classified error in err's chain, or wraps err as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Msg: "generation failed", Err: err}
}
