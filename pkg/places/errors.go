package places

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("google places API key is not configured")

	// ErrQuotaExceeded is returned before any network call once the daily ceiling is reached
	ErrQuotaExceeded = errors.New("google places daily quota exceeded")

	// ErrRequestFailed is returned for network errors, non-200 responses and malformed bodies
	ErrRequestFailed = errors.New("google places request failed")
)

// Provider status values of the legacy web service
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusNotFound       = "NOT_FOUND"
)

// StatusError is a provider response whose status is neither OK nor ZERO_RESULTS.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("google places status %s", e.Status)
	}
	return fmt.Sprintf("google places status %s: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrRequestFailed
}

// Remediation returns operator hints for a failed status.
func Remediation(status string) []string {
	switch status {
	case StatusRequestDenied:
		return []string{
			"Enable the Places API for the project in Google Cloud Console",
			"Check that billing is enabled for the project",
			"Check the API key restrictions (HTTP referrers, IP addresses, allowed APIs)",
		}
	case StatusOverQueryLimit:
		return []string{
			"Wait for the daily quota to reset",
			"Review quota and billing limits in Google Cloud Console",
		}
	case StatusInvalidRequest:
		return []string{
			"Check the search location and radius parameters",
		}
	case "":
		return []string{
			"Check network connectivity to maps.googleapis.com",
		}
	default:
		return nil
	}
}
