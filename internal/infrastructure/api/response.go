// Package api holds shared HTTP response helpers for the admin surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"storebridge-sync-core/internal/domain"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a machine-readable code alongside the message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON sends a success envelope with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// OK sends a 200 response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a 201 response with the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error maps a domain error onto an HTTP status and sends the error
// envelope.
func Error(w http.ResponseWriter, err error) {
	status, code := classify(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownStore):
		return http.StatusNotFound, "unknown_store"
	case errors.Is(err, domain.ErrRemoteNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "authentication_failed"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicateEvent):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
