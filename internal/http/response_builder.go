// Package http serves the relief engine as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses so
// every handler emits the same envelope and headers.

package http

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeInvalidDonation  = "invalid_donation"
	CodeAlreadyVoted     = "already_voted"
	CodeProposalNotFound = "proposal_not_found"
	CodeStoreUnavailable = "store_unavailable"
	CodeRateLimited      = "rate_limited"
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeNotReady         = "not_ready"
	CodeInternal         = "internal_error"
)

// ErrorBody is the JSON envelope for failed requests. State is set when the
// action was applied in memory but could not be persisted.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
	State     any    `json:"state,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	var payload []byte
	if b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"failed to encode response","code":"internal_error"}`))
			return
		}
	}

	if len(payload) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(append(payload, '\n'))
	}
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Code: code})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, CodeInvalidDonation, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, CodeAlreadyVoted, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(code, message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, code, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// StoreUnavailableError creates a 503 response for an action that was applied
// but not saved. The caller may retry.
func StoreUnavailableError(message string, state any) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusServiceUnavailable).
		Body(ErrorBody{Error: message, Code: CodeStoreUnavailable, Retryable: true, State: state})
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	b := ErrorResponse(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	if allowedMethods != "" {
		b.Header("Allow", allowedMethods)
	}
	return b
}
