package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// requestIDKey matches the key the logging middleware stores the request id under.
const requestIDKey = "request_id"

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string            `json:"error"`   // stable code, see codes.go
	Message   string            `json:"message"` // human readable
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func newResponse(c *gin.Context, code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: c.GetString(requestIDKey),
	}
}

// RespondWithError writes the error body and stops the handler chain.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.AbortWithStatusJSON(statusCode, newResponse(c, errorCode, message))
}

// RespondWithInfo writes an error already mapped by ParseError.
func RespondWithInfo(c *gin.Context, info ErrorInfo) {
	RespondWithError(c, info.Status, info.Code, info.Message)
}

func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, orDefault(message, "Authentication required"))
}

func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, orDefault(message, "Access denied"))
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

// TooManyRequests is used when the provider quota for the day is spent.
func TooManyRequests(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusTooManyRequests, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, InternalServerError,
		orDefault(message, "An internal error occurred, try again later"))
}

// RespondWithValidationError reports per-field messages under one code.
func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	resp := newResponse(c, ValidationInvalidInput, "Invalid input")
	resp.Fields = fields
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
