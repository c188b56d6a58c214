package ports

import (
	"context"
	"io"

	"github.com/kirillkom/contract-qa/internal/core/domain"
)

// PaymentProvider creates and reads hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
}

// PaidSessionRegistry remembers which checkout sessions were confirmed paid.
// RecordPaid must be idempotent.
type PaidSessionRegistry interface {
	RecordPaid(sessionID string)
	IsPaid(sessionID string) bool
}

// UploadStorage holds uploaded documents until they are extracted.
type UploadStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor extracts plain text from a stored upload.
type TextExtractor interface {
	Extract(ctx context.Context, upload domain.Upload) (string, error)
}

// AnswerGenerator produces an answer grounded in the supplied contract text.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, contractText, question string) (string, error)
}
