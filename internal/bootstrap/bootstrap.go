package bootstrap

import (
	"fmt"
	"strings"

	"github.com/kirillkom/contract-qa/internal/config"
	"github.com/kirillkom/contract-qa/internal/core/ports"
	"github.com/kirillkom/contract-qa/internal/core/usecase"
	"github.com/kirillkom/contract-qa/internal/infrastructure/extractor/document"
	"github.com/kirillkom/contract-qa/internal/infrastructure/llm/openai"
	"github.com/kirillkom/contract-qa/internal/infrastructure/payment/stripecheckout"
	"github.com/kirillkom/contract-qa/internal/infrastructure/registry/memory"
	"github.com/kirillkom/contract-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/contract-qa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/contract-qa/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	CheckoutUC ports.CheckoutService
	QueryUC    ports.ContractQueryService
}

func New(cfg config.Config) (*App, error) {
	storage, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	m := metrics.NewHTTPServerMetrics("api")
	registry := memory.NewPaidSessions()
	m.RegisterPaidSessionsGauge(registry.Len)

	policy := resilience.DefaultConfig()
	policy.CallTimeout = cfg.ProviderTimeout()
	policy.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(policy)

	payments := stripecheckout.New(cfg.StripeSecretKey, cfg.StripeAPIURL, executor)
	checkoutUC := usecase.NewCheckoutUseCase(payments, registry, usecase.CheckoutOptions{
		Configured: strings.TrimSpace(cfg.StripeSecretKey) != "",
		PriceID:    cfg.StripePriceID,
		Amount:     cfg.CheckoutAmount,
		Currency:   cfg.CheckoutCurrency,
		BaseURL:    cfg.PublicBaseURL(),
	})

	llmClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, executor).
		WithUsageObserver(m.RecordCompletion)
	queryUC := usecase.NewQueryUseCase(
		checkoutUC,
		storage,
		document.NewExtractor(storage),
		openai.NewGenerator(llmClient),
	).WithExtractedTextObserver(m.RecordContractText)

	return &App{
		Config:     cfg,
		Metrics:    m,
		CheckoutUC: checkoutUC,
		QueryUC:    queryUC,
	}, nil
}
