package httpadapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kirillkom/contract-qa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// describeError builds the client-facing body for err. Configuration and
// extraction internals stay in the server log.
func describeError(err error) errorResponse {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return errorResponse{Error: "invalid request", Details: err.Error()}
	case domain.IsKind(err, domain.ErrPaymentRequired):
		return errorResponse{Error: "payment required", Details: "complete checkout before asking questions"}
	case domain.IsKind(err, domain.ErrNotConfigured):
		return errorResponse{Error: "service is not configured"}
	case domain.IsKind(err, domain.ErrExtraction):
		return errorResponse{Error: "could not read the uploaded contract"}
	case domain.IsKind(err, domain.ErrTemporary):
		return errorResponse{Error: "service temporarily unavailable, retry later", Details: domain.ProviderMessage(err)}
	case domain.IsKind(err, domain.ErrProvider):
		return errorResponse{Error: "upstream provider request failed", Details: domain.ProviderMessage(err)}
	default:
		return errorResponse{Error: "internal server error"}
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, operation string, err error) int {
	status := mapErrorToHTTPStatus(err)
	switch {
	case status >= 500:
		slog.ErrorContext(ctx, "request_failed", "operation", operation, "status", status, "error", err)
	default:
		slog.WarnContext(ctx, "request_rejected", "operation", operation, "status", status, "error", err)
	}
	writeJSON(w, status, describeError(err))
	return status
}
