package ports

import (
	"context"
	"io"

	"github.com/kirillkom/contract-qa/internal/core/domain"
)

// CheckoutService is the inbound contract for one-time payment gating.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context) (*domain.CheckoutSession, error)
	VerifyCheckoutSession(ctx context.Context, sessionID string) (bool, error)
	IsSessionPaid(ctx context.Context, sessionID string) bool
}

// ContractQueryService answers a question about an uploaded contract for a paid session.
type ContractQueryService interface {
	Ask(ctx context.Context, sessionID, filename string, body io.Reader, question string) (*domain.Answer, error)
}
