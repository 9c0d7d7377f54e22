package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ekaty/ekaty-backend/pkg/places"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo is the client-facing shape of an error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError converts err into a status, code and message safe to show a client.
// Database and provider details are never echoed back.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "An internal error occurred",
		}
	}

	// 1. GORM errors
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err.Error())
	}

	// 2. Provider errors
	if errors.Is(err, places.ErrQuotaExceeded) {
		return ErrorInfo{
			Status:  http.StatusTooManyRequests,
			Code:    SyncQuotaExceeded,
			Message: "Daily Google Places quota exhausted, try again tomorrow",
		}
	}
	if errors.Is(err, places.ErrMissingAPIKey) {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    SyncMissingAPIKey,
			Message: "Google Places API key is not configured",
		}
	}
	var statusErr *places.StatusError
	if errors.As(err, &statusErr) {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    SyncProviderFailure,
			Message: "Google Places returned " + statusErr.Status,
		}
	}
	if errors.Is(err, places.ErrRequestFailed) {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    InternalExternalAPI,
			Message: "Google Places request failed, try again later",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 3. Constraint violations surfaced without translation
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// 4. Network errors
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    InternalExternalAPI,
			Message: "Failed to reach an upstream service, try again later",
		}
	}

	// 5. Fallback
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	if strings.Contains(strings.ToLower(errStr), "slug") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceAlreadyExists,
			Message: "A restaurant with this slug already exists",
		}
	}
	return ErrorInfo{
		Status:  http.StatusConflict,
		Code:    ResourceAlreadyExists,
		Message: "The record already exists",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "restaurant") {
		return "Restaurant not found"
	}
	if strings.Contains(contextLower, "usage") {
		return "No API usage recorded"
	}
	if strings.Contains(contextLower, "audit") {
		return "Audit log entry not found"
	}
	return "The requested resource was not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "update") {
		return "Failed to save changes, try again later"
	}
	if strings.Contains(contextLower, "sync") || strings.Contains(contextLower, "import") || strings.Contains(contextLower, "refresh") {
		return "Sync failed, check the audit log for details"
	}
	return "An internal error occurred, try again later"
}

// ParseAndRespond writes the parsed error with its mapped status.
func ParseAndRespond(c *gin.Context, err error, context string) {
	RespondWithInfo(c, ParseError(err, context))
}
