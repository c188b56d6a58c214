package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/core/ports"
)

const pdfExtension = ".pdf"

type Extractor struct {
	storage ports.UploadStorage
}

func NewExtractor(storage ports.UploadStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, upload domain.Upload) (string, error) {
	reader, err := e.storage.Open(ctx, upload.Key)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open upload", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read upload", err)
	}
	return ExtractText(raw, upload.Filename)
}

// ExtractText returns the text of a PDF when filename has a .pdf extension
// and the raw bytes as a string otherwise. Non-PDF formats are not detected,
// so binary formats such as .docx come back as undecoded bytes.
func ExtractText(raw []byte, filename string) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), pdfExtension) {
		text, err := pdfText(raw)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "parse pdf", err)
		}
		return text, nil
	}
	return string(raw), nil
}

func pdfText(raw []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
