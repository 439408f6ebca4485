package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in error responses
const (
	ErrBadRequestCode  = "BAD_REQUEST"
	ErrNotFoundCode    = "NOT_FOUND"
	ErrConflictCode    = "CONFLICT"
	ErrUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrInternalCode    = "INTERNAL_ERROR"
)

// RequestError is an error with the HTTP status it should be reported as.
type RequestError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Reason: reason, Err: err}
}

// IsRequestError checks if the given error is a RequestError
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// ErrorInfo is the body of every error response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *RequestError) info() ErrorInfo {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}
	code := ErrInternalCode
	switch e.StatusCode {
	case http.StatusBadRequest:
		code = ErrBadRequestCode
	case http.StatusNotFound:
		code = ErrNotFoundCode
	case http.StatusConflict:
		code = ErrConflictCode
	case http.StatusServiceUnavailable:
		code = ErrUnavailableCode
	}
	return ErrorInfo{Code: code, Message: e.Reason, Details: details}
}

func respondError(c *gin.Context, reqErr *RequestError) {
	c.AbortWithStatusJSON(reqErr.StatusCode, gin.H{"error": reqErr.info()})
}
