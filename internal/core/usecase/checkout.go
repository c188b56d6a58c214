package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/core/ports"
)

const (
	defaultCheckoutAmount   int64 = 1000
	defaultCheckoutCurrency       = "usd"
	checkoutProductLabel          = "Contract Q&A access"
)

var priceIDPattern = regexp.MustCompile(`^price_[A-Za-z0-9]+$`)

type CheckoutOptions struct {
	// Configured reports whether payment provider credentials are present.
	Configured bool
	PriceID    string
	Amount     int64
	Currency   string
	// BaseURL is the public origin that checkout redirects back to.
	BaseURL string
}

// CheckoutUseCase creates checkout sessions and remembers which ones were paid.
type CheckoutUseCase struct {
	provider ports.PaymentProvider
	registry ports.PaidSessionRegistry
	opts     CheckoutOptions
}

func NewCheckoutUseCase(
	provider ports.PaymentProvider,
	registry ports.PaidSessionRegistry,
	opts CheckoutOptions,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		provider: provider,
		registry: registry,
		opts:     opts,
	}
}

func (uc *CheckoutUseCase) CreateCheckoutSession(ctx context.Context) (*domain.CheckoutSession, error) {
	if !uc.configured() {
		return nil, domain.WrapError(domain.ErrNotConfigured, "create checkout session", errors.New("payment provider credentials are missing"))
	}

	base := strings.TrimRight(uc.opts.BaseURL, "/")
	session, err := uc.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		Price:      uc.priceSelection(),
		SuccessURL: base + "/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/?canceled=true",
	})
	if err != nil {
		return nil, asProviderError("create checkout session", err)
	}

	slog.InfoContext(ctx, "checkout_session_created", "session_id", session.ID)
	return session, nil
}

func (uc *CheckoutUseCase) VerifyCheckoutSession(ctx context.Context, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, domain.WrapError(domain.ErrInvalidInput, "verify checkout session", errors.New("session id is required"))
	}
	if !uc.configured() {
		return false, domain.WrapError(domain.ErrNotConfigured, "verify checkout session", errors.New("payment provider credentials are missing"))
	}

	session, err := uc.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return false, asProviderError("verify checkout session", err)
	}

	paid := session.Paid()
	if paid {
		uc.registry.RecordPaid(sessionID)
	}
	slog.InfoContext(ctx, "checkout_session_verified",
		"session_id", sessionID,
		"payment_status", string(session.PaymentStatus),
		"paid", paid,
	)
	return paid, nil
}

// IsSessionPaid consults only the registry. Trust is established once by
// VerifyCheckoutSession and never re-checked with the provider.
func (uc *CheckoutUseCase) IsSessionPaid(_ context.Context, sessionID string) bool {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false
	}
	return uc.registry.IsPaid(sessionID)
}

func (uc *CheckoutUseCase) configured() bool {
	return uc.opts.Configured && uc.provider != nil
}

func (uc *CheckoutUseCase) priceSelection() domain.PriceSelection {
	priceID := strings.TrimSpace(uc.opts.PriceID)
	if priceIDPattern.MatchString(priceID) {
		return domain.PriceSelection{PriceID: priceID}
	}

	amount := uc.opts.Amount
	if amount <= 0 {
		amount = defaultCheckoutAmount
	}
	currency := strings.ToLower(strings.TrimSpace(uc.opts.Currency))
	if currency == "" {
		currency = defaultCheckoutCurrency
	}
	return domain.PriceSelection{
		Amount:       amount,
		Currency:     currency,
		ProductLabel: checkoutProductLabel,
	}
}

func asProviderError(operation string, err error) error {
	switch {
	case domain.IsKind(err, domain.ErrProvider), domain.IsKind(err, domain.ErrNotConfigured):
		return fmt.Errorf("%s: %w", operation, err)
	default:
		return domain.WrapError(domain.ErrProvider, operation, err)
	}
}
