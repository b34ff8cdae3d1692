package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/models"
)

// statusCodeRegex finds an HTTP status in provider error text, e.g. "Error 429, Message: ..."
var statusCodeRegex = regexp.MustCompile(`(?i)(?:error|status(?:\s*code)?)[:\s]+(\d{3})\b`)

var quotaMarkers = []string{"RESOURCE_EXHAUSTED", "quota", "rate limit", "rate_limit", "too many requests"}

var fatalMarkers = []string{
	"INVALID_ARGUMENT", "PERMISSION_DENIED", "UNAUTHENTICATED", "NOT_FOUND",
	"API key not valid", "invalid x-api-key", "authentication_error", "permission_error",
	"invalid_request_error", "not_found_error",
}

// Classify maps a provider error to a generation status.
// Anything not recognised as quota or fatal is treated as transient.
func Classify(err error) models.GenerationStatus {
	if err == nil {
		return models.GenerationSuccess
	}

	switch {
	case errors.Is(err, common.ErrQuotaExceeded):
		return models.GenerationQuotaExceeded
	case errors.Is(err, common.ErrFatal):
		return models.GenerationFatal
	case errors.Is(err, common.ErrTransient),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return models.GenerationTransient
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if status, ok := classifyStatusCode(apiErr.StatusCode); ok {
			return status
		}
	}

	msg := err.Error()
	if m := statusCodeRegex.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		if status, ok := classifyStatusCode(code); ok {
			return status
		}
	}

	lower := strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return models.GenerationQuotaExceeded
		}
	}
	for _, marker := range fatalMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return models.GenerationFatal
		}
	}

	return models.GenerationTransient
}

func classifyStatusCode(code int) (models.GenerationStatus, bool) {
	switch {
	case code == 429:
		return models.GenerationQuotaExceeded, true
	case code == 408 || code == 409:
		return models.GenerationTransient, true
	case code >= 400 && code < 500:
		return models.GenerationFatal, true
	case code >= 500:
		return models.GenerationTransient, true
	}
	return "", false
}

// statusError returns the sentinel matching a failed status
func statusError(status models.GenerationStatus) error {
	switch status {
	case models.GenerationQuotaExceeded:
		return common.ErrQuotaExceeded
	case models.GenerationFatal:
		return common.ErrFatal
	case models.GenerationCircuitOpen:
		return common.ErrCircuitOpen
	default:
		return common.ErrTransient
	}
}
