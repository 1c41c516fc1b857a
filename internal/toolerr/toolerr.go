// Package toolerr defines the uniform failure contract for airflow-mcp
// tools. Every anticipated failure is represented as an *Error carrying a
// stable code from a closed set, and every caller-visible failure is
// serialized as a single JSON envelope {code, message, request_id,
// context?}. Credentials and raw secrets must never appear in the message or
// context of an envelope.
package toolerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Stable error codes. The set is closed: tool handlers map every failure to
// exactly one of these before it reaches a caller.
const (
	CodeConfigError      = "CONFIG_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnknownHost      = "UNKNOWN_HOST"
	CodeInstanceMismatch = "INSTANCE_MISMATCH"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

// UnexpectedMessage is the generic message used when an unanticipated error
// is masked as INTERNAL_ERROR. Details stay in the server log, keyed by
// request_id.
const UnexpectedMessage = "Unexpected error; see logs with request_id"

// Error is an expected, user-facing failure with an explicit code and
// optional non-sensitive context (e.g. the offending field name).
type Error struct {
	Code    string
	Message string
	Context map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithContext attaches a context field and returns the error for chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Envelope is the JSON wire shape of a failed operation.
type Envelope struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// EnvelopeJSON renders the envelope for err with the given request id.
// Errors that are not *Error (and not timeouts) are masked as
// INTERNAL_ERROR with a generic message so callers never see internals.
func EnvelopeJSON(err error, requestID string) string {
	env := Envelope{RequestID: requestID}

	var te *Error
	switch {
	case errors.As(err, &te):
		env.Code = te.Code
		env.Message = te.Message
		env.Context = te.Context
	case errors.Is(err, context.DeadlineExceeded):
		env.Code = CodeTimeout
		env.Message = "Backend call exceeded the configured timeout"
	default:
		env.Code = CodeInternal
		env.Message = UnexpectedMessage
	}

	data, jerr := json.Marshal(env)
	if jerr != nil {
		// Envelope fields are plain strings and a flat map; marshalling
		// cannot realistically fail, but never return an empty payload.
		return fmt.Sprintf(`{"code":%q,"message":%q,"request_id":%q}`,
			CodeInternal, UnexpectedMessage, requestID)
	}
	return string(data)
}

// CodeOf returns the stable code for err, applying the same classification
// as EnvelopeJSON.
func CodeOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}

const detailLimit = 200

// TrimDetail compacts backend error detail for inclusion in messages. Long
// bodies are cut at 200 characters; whitespace-only detail is dropped.
func TrimDetail(detail string) string {
	detail = strings.TrimSpace(detail)
	if len(detail) > detailLimit {
		return detail[:detailLimit] + "..."
	}
	return detail
}

// FromHTTPStatus normalizes a backend HTTP failure into an Error. 404 maps
// to NOT_FOUND, other 4xx to INVALID_INPUT, everything else to
// INTERNAL_ERROR. The trimmed detail is appended to the message and mirrored
// into context so callers can distinguish backend rejections from local
// validation failures.
func FromHTTPStatus(status int, message, detail string) *Error {
	code := CodeInternal
	switch {
	case status == 404:
		code = CodeNotFound
	case status >= 400 && status < 500:
		code = CodeInvalidInput
	}

	friendly := fmt.Sprintf("%s (HTTP %d)", message, status)
	e := New(code, friendly).WithContext("status", status)
	if d := TrimDetail(detail); d != "" {
		e.Message = friendly + ": " + d
		e.WithContext("detail", d)
	}
	return e
}
