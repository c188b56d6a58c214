package stripecheckout

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/infrastructure/resilience"
)

const (
	createOperation   = "stripe.checkout_sessions.create"
	retrieveOperation = "stripe.checkout_sessions.retrieve"
)

// Provider talks to Stripe Checkout. The SDK's own network retries are
// disabled so every call is attempted exactly once.
type Provider struct {
	api      *client.API
	executor *resilience.Executor
}

// New builds a provider for secretKey. apiURL overrides the Stripe API origin
// and is empty in production.
func New(secretKey, apiURL string, executor *resilience.Executor) *Provider {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     slogLogger{},
	}
	if apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/"); apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}

	return &Provider{
		api:      client.New(secretKey, backends),
		executor: executor,
	}
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{lineItem(req.Price)},
	}

	session, err := resilience.Call(ctx, p.executor, createOperation, func(ctx context.Context) (*stripe.CheckoutSession, error) {
		params.Context = ctx
		return p.api.CheckoutSessions.New(params)
	}, countsAsFailure)
	if err != nil {
		return nil, asProviderError("create checkout session", err)
	}
	return toDomain(session), nil
}

func (p *Provider) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	session, err := resilience.Call(ctx, p.executor, retrieveOperation, func(ctx context.Context) (*stripe.CheckoutSession, error) {
		params := &stripe.CheckoutSessionParams{}
		params.Context = ctx
		return p.api.CheckoutSessions.Get(sessionID, params)
	}, countsAsFailure)
	if err != nil {
		return nil, asProviderError("retrieve checkout session", err)
	}
	return toDomain(session), nil
}

func lineItem(price domain.PriceSelection) *stripe.CheckoutSessionLineItemParams {
	if price.UsesPriceID() {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(price.PriceID),
			Quantity: stripe.Int64(1),
		}
	}
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(price.Currency),
			UnitAmount: stripe.Int64(price.Amount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(price.ProductLabel),
			},
		},
	}
}

func toDomain(session *stripe.CheckoutSession) *domain.CheckoutSession {
	if session == nil {
		return &domain.CheckoutSession{}
	}
	return &domain.CheckoutSession{
		ID:            session.ID,
		URL:           session.URL,
		PaymentStatus: domain.PaymentStatus(session.PaymentStatus),
	}
}

// countsAsFailure ignores request errors such as unknown session ids so a
// burst of bad ids cannot open the breaker.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.HTTPStatusCode >= 500
	}
	return true
}

func asProviderError(operation string, err error) error {
	kind := domain.ErrProvider
	message := "payment provider request failed"
	var stripeErr *stripe.Error
	switch {
	case resilience.IsCircuitOpen(err):
		kind = domain.ErrTemporary
		message = "payment provider temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		message = "payment provider request timed out"
	case errors.As(err, &stripeErr) && strings.TrimSpace(stripeErr.Msg) != "":
		message = strings.TrimSpace(stripeErr.Msg)
	}
	return domain.WrapError(kind, operation, &domain.ProviderError{
		Provider: "stripe",
		Message:  message,
		Err:      err,
	})
}
