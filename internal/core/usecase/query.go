package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/core/ports"
)

// QueryUseCase runs the paid contract question pipeline:
// validate -> payment check -> store upload -> extract -> delete upload -> answer.
type QueryUseCase struct {
	checkout  ports.CheckoutService
	storage   ports.UploadStorage
	extractor ports.TextExtractor
	generator ports.AnswerGenerator

	onExtracted func(textBytes int)
}

func NewQueryUseCase(
	checkout ports.CheckoutService,
	storage ports.UploadStorage,
	extractor ports.TextExtractor,
	generator ports.AnswerGenerator,
) *QueryUseCase {
	return &QueryUseCase{
		checkout:  checkout,
		storage:   storage,
		extractor: extractor,
		generator: generator,
	}
}

// WithExtractedTextObserver registers a callback that receives the size of
// every extracted contract text before it is sent for answering.
func (uc *QueryUseCase) WithExtractedTextObserver(fn func(textBytes int)) *QueryUseCase {
	uc.onExtracted = fn
	return uc
}

func (uc *QueryUseCase) Ask(
	ctx context.Context,
	sessionID, filename string,
	body io.Reader,
	question string,
) (*domain.Answer, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("contract file is required"))
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || !uc.checkout.IsSessionPaid(ctx, sessionID) {
		return nil, domain.WrapError(domain.ErrPaymentRequired, "ask", errors.New("checkout session is not paid"))
	}

	text, err := uc.extract(ctx, filename, body)
	if err != nil {
		logRejected(ctx, domain.StagePaymentChecked, err)
		return nil, err
	}
	if uc.onExtracted != nil {
		uc.onExtracted(len(text))
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, text, question)
	if err != nil {
		logRejected(ctx, domain.StageExtracted, err)
		return nil, asProviderError("generate answer", err)
	}

	return &domain.Answer{Text: answerText}, nil
}

// extract stores the upload, reads its text and removes it again. The upload
// never outlives this call, whichever way it returns.
func (uc *QueryUseCase) extract(ctx context.Context, filename string, body io.Reader) (string, error) {
	upload := domain.Upload{
		Key:      fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename)),
		Filename: filename,
	}

	size, err := uc.storage.Save(ctx, upload.Key, body)
	if err != nil {
		uc.cleanup(ctx, upload.Key)
		return "", domain.WrapError(domain.ErrExtraction, "store upload", err)
	}
	upload.Size = size

	text, err := uc.extractor.Extract(ctx, upload)
	uc.cleanup(ctx, upload.Key)
	if err != nil {
		if domain.IsKind(err, domain.ErrExtraction) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	return text, nil
}

func (uc *QueryUseCase) cleanup(ctx context.Context, key string) {
	if err := uc.storage.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "upload_cleanup_failed", "key", key, "error", err)
	}
}

func logRejected(ctx context.Context, reached domain.QueryStage, err error) {
	slog.WarnContext(ctx, "contract_query_rejected", "stage", string(reached), "error", err)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "contract.bin"
	}
	return base
}
