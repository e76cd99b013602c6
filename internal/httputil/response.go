package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"photogram/internal/model"
)

// Error codes returned in the "code" field of error bodies
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeStorage      = "STORAGE_FAILURE"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that is left is to record it.
			log.Printf("[httputil] WriteJSON encode failed: %v", err)
			return
		}
	}
}

// WriteError writes an error response in the format:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
	WriteJSON(w, status, response)
}

// Common error response helpers

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteBadRequestWithCode writes a 400 Bad Request error with a custom code
func WriteBadRequestWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode writes a 401 Unauthorized error with a custom code
func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteConflict writes a 409 Conflict error
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ErrCodeConflict, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// WriteServiceError translates a domain error to a response by its kind. Errors of no
// known kind are logged and reported as fallback with a 500.
func WriteServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, model.CodeAccountNotFound, err.Error())
	case errors.Is(err, model.ErrPhotoNotFound):
		WriteError(w, http.StatusNotFound, model.CodePhotoNotFound, err.Error())
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrUnauthenticated):
		WriteUnauthorized(w, err.Error())
	case errors.Is(err, model.ErrFileTooLarge):
		WriteBadRequestWithCode(w, model.CodeFileTooLarge, err.Error())
	case errors.Is(err, model.ErrInvalidImageType):
		WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidInput):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrStorageFailure):
		log.Printf("[ERROR] %s: %v", fallback, err)
		WriteError(w, http.StatusServiceUnavailable, ErrCodeStorage, fallback)
	default:
		log.Printf("[ERROR] %s: %v", fallback, err)
		WriteInternalError(w, fallback)
	}
}
