package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
	// Message is the provider's error.message field when the body carried one.
	Message string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "openai status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("openai %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("openai %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// countsAsFailure keeps caller mistakes (bad key, oversized input) from
// tripping the breaker; timeouts, throttling and 5xx do count.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isServerSideStatus(statusErr.StatusCode)
	}
	return true
}

func isServerSideStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= 500
	}
}

func asProviderError(err error) error {
	if err == nil {
		return nil
	}

	kind := domain.ErrProvider
	message := "completion request failed"
	var statusErr *HTTPStatusError
	switch {
	case resilience.IsCircuitOpen(err):
		kind = domain.ErrTemporary
		message = "completion provider temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		message = "completion request timed out"
	case errors.As(err, &statusErr):
		message = statusErr.Status
		if strings.TrimSpace(statusErr.Message) != "" {
			message = strings.TrimSpace(statusErr.Message)
		}
	}
	return domain.WrapError(kind, "chat completion", &domain.ProviderError{
		Provider: "openai",
		Message:  message,
		Err:      err,
	})
}
