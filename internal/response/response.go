package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"whispernet/internal/contextutils"
	"whispernet/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse is the standard JSON envelope for every API endpoint.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// ErrorDetail carries structured error information in API responses.
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Fields  []FieldError           `json:"fields,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FieldError names a validation failure on a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder constructs and writes standardized responses.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a response builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Success creates a successful API response.
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: contextutils.GetRequestID(ctx),
		Timestamp: time.Now().Unix(),
	}
}

// Error creates an error response from a service error.
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     b.convertError(err),
		RequestID: contextutils.GetRequestID(ctx),
		Timestamp: time.Now().Unix(),
	}
}

// ===============================
// HTTP RESPONSE WRITERS
// ===============================

// WriteJSON writes a JSON response with appropriate headers.
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, resp *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.logger.Error("failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a successful JSON response.
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteCreated writes a successful creation response.
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusCreated)
}

// WriteError writes an error response with the status code derived from the
// service error taxonomy. Internal causes are masked; only the service-level
// message is exposed.
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	resp := b.Error(r.Context(), err)

	statusCode := http.StatusInternalServerError
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		statusCode = serviceErr.GetStatusCode()
	}
	if statusCode >= http.StatusInternalServerError {
		b.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
		)
	}
	b.WriteJSON(w, r, resp, statusCode)
}

// WriteValidationError writes a 400 with per-field errors.
func (b *Builder) WriteValidationError(w http.ResponseWriter, r *http.Request, message string, fields []FieldError) {
	resp := &APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Type:    "VALIDATION_ERROR",
			Message: message,
			Fields:  fields,
		},
		RequestID: contextutils.GetRequestID(r.Context()),
		Timestamp: time.Now().Unix(),
	}
	b.WriteJSON(w, r, resp, http.StatusBadRequest)
}

func (b *Builder) convertError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		return &ErrorDetail{
			Type:    serviceErr.Type,
			Message: serviceErr.Message,
			Code:    serviceErr.Code,
			Details: serviceErr.Details,
		}
	}
	return &ErrorDetail{
		Type:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}
}
