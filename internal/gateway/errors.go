// Package gateway defines the error model shared by handlers, adapters, and
// transcoders. Every failure surfaced to a client is one of the kinds below,
// rendered as an OpenAI-style error envelope.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway error by its client-visible semantics.
type Kind int

const (
	// KindUnauthorized covers missing/malformed bearers, allow-list
	// rejections, and API keys unusable as header values.
	KindUnauthorized Kind = iota
	// KindBadRequest covers malformed or incomplete client input.
	KindBadRequest
	// KindUpstream carries a non-2xx upstream status and body through.
	KindUpstream
	// KindTransport covers network failures after retry exhaustion.
	KindTransport
	// KindInternal covers upstream bodies that should be JSON but are not.
	KindInternal
)

// Error is the gateway's single error type.
type Error struct {
	Kind    Kind
	Message string

	// Status and Body are set only for KindUpstream.
	Status int
	Body   string

	// Cause is set only for KindTransport.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return "unauthorized: " + e.Message
	case KindBadRequest:
		return "bad request: " + e.Message
	case KindUpstream:
		return fmt.Sprintf("upstream returned %d", e.Status)
	case KindTransport:
		return "transport error: " + e.Cause.Error()
	default:
		return "internal error: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Upstream builds a KindUpstream error carrying the upstream status and body.
func Upstream(status int, body string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Body: body}
}

// Transport builds a KindTransport error wrapping a network failure.
func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Cause: cause}
}

// Internal builds a KindInternal error.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// envelope is the OpenAI-shaped error body.
type envelope struct {
	Error envelopeBody `json:"error"`
}

type envelopeBody struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

// WriteError renders err as an HTTP response. Upstream errors with a JSON
// body are forwarded verbatim under the upstream status; everything else is
// wrapped in the error envelope.
func WriteError(w http.ResponseWriter, err error) {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		gwErr = Internal(err.Error())
	}

	switch gwErr.Kind {
	case KindUnauthorized:
		writeEnvelope(w, http.StatusUnauthorized, gwErr.Message, "authentication_error")
	case KindBadRequest:
		writeEnvelope(w, http.StatusBadRequest, gwErr.Message, "invalid_request_error")
	case KindUpstream:
		if json.Valid([]byte(gwErr.Body)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(gwErr.Status)
			_, _ = w.Write([]byte(gwErr.Body))
			return
		}
		message := gwErr.Body
		if message == "" {
			message = fmt.Sprintf("Upstream provider returned %d", gwErr.Status)
		}
		writeEnvelope(w, gwErr.Status, message, "upstream_error")
	case KindTransport:
		writeEnvelope(w, http.StatusBadGateway, "Failed to reach upstream provider", "upstream_error")
	default:
		writeEnvelope(w, http.StatusInternalServerError, gwErr.Message, "internal_error")
	}
}

func writeEnvelope(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: envelopeBody{
		Message: message,
		Type:    errType,
	}})
}
