// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto HTTP status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finx/internal/advisor"
	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/log"
	"finx/internal/services"
	"finx/internal/session"
)

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

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// statusForError maps a handler error onto its status code and error type.
func statusForError(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var upstream *advisor.StatusError

	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, log.ErrorTypeValidation
	case errors.Is(err, session.ErrLoanNotFound),
		errors.Is(err, session.ErrExpenseNotFound),
		errors.Is(err, session.ErrUnknownAchievement):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, errDerivedField),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrInvalidDuration),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, finance.ErrInvalidTerm),
		errors.Is(err, finance.ErrUnknownScenario),
		errors.Is(err, finance.ErrInvalidScenario),
		errors.Is(err, services.ErrInvalidHorizon),
		errors.Is(err, services.ErrTooManyScenarios),
		errors.Is(err, advisor.ErrNoMessages),
		errors.Is(err, advisor.ErrInvalidRoles),
		errors.Is(err, errInvalidInput):
		return http.StatusUnprocessableEntity, log.ErrorTypeValidation
	case errors.Is(err, services.ErrAdvisorUnavailable):
		return http.StatusServiceUnavailable, log.ErrorTypeUnavailable
	case errors.As(err, &upstream), errors.Is(err, advisor.ErrEmptyReply):
		return http.StatusBadGateway, log.ErrorTypeNetwork
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, log.ErrorTypeTimeout
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// writeError logs err and writes its JSON error response. Internal errors
// are reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errorType := statusForError(err)
	logger := log.FromContext(r.Context())

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, errorType, op)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldError, err,
			log.FieldErrorType, errorType)
	}

	ErrorResponse(status, message).Write(w)
}
