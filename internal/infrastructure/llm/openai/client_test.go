package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/infrastructure/resilience"
)

func TestGeneratorSendsTwoMessagePrompt(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  The term is 12 months.\n"}}],"usage":{"prompt_tokens":40,"completion_tokens":7}}`))
	}))
	defer server.Close()

	var observedPrompt, observedCompletion int
	client := New(server.URL, "sk-test", "gpt-4o-mini", nil).
		WithUsageObserver(func(model string, prompt, completion int, _ time.Duration) {
			observedPrompt, observedCompletion = prompt, completion
		})
	answer, err := NewGenerator(client).GenerateAnswer(context.Background(), "Term: 12 months", "What is the term?")
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "The term is 12 months." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
	if authHeader != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", authHeader)
	}
	if captured.Model != "gpt-4o-mini" || captured.MaxTokens != 512 || captured.Temperature != answerTemperature {
		t.Fatalf("unexpected request parameters %+v", captured)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != answerSystemPrompt {
		t.Fatalf("unexpected system message %+v", captured.Messages[0])
	}
	wantUser := "Contract:\n\nTerm: 12 months\n\nQuestion: What is the term?"
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != wantUser {
		t.Fatalf("unexpected user message %+v", captured.Messages[1])
	}
	if observedPrompt != 40 || observedCompletion != 7 {
		t.Fatalf("unexpected usage observation %d/%d", observedPrompt, observedCompletion)
	}
}

func TestGeneratorNoChoicesReturnsEmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	answer, err := NewGenerator(New(server.URL, "sk-test", "m", nil)).GenerateAnswer(context.Background(), "c", "q")
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "" {
		t.Fatalf("expected empty answer, got %q", answer)
	}
}

func TestGeneratorWithoutKeyIsNotConfigured(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	_, err := NewGenerator(New(server.URL, "  ", "m", nil)).GenerateAnswer(context.Background(), "c", "q")
	if !domain.IsKind(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("provider must not be called without credentials")
	}
}

func TestGeneratorProviderErrorCarriesMessageWithoutRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	_, err := NewGenerator(New(server.URL, "sk-test", "m", nil)).GenerateAnswer(context.Background(), "c", "q")
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := domain.ProviderMessage(err); got != "Rate limit reached" {
		t.Fatalf("expected provider message, got %q", got)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single provider call, got %d", hits)
	}
}

func TestGeneratorTimesOutHungProvider(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	exec := resilience.NewExecutor(resilience.Config{CallTimeout: 50 * time.Millisecond})
	_, err := NewGenerator(New(server.URL, "sk-test", "m", exec)).GenerateAnswer(context.Background(), "c", "q")
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := domain.ProviderMessage(err); got != "completion request timed out" {
		t.Fatalf("unexpected provider message %q", got)
	}
}

func TestCountsAsFailure(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&HTTPStatusError{StatusCode: http.StatusUnauthorized}, false},
		{&HTTPStatusError{StatusCode: http.StatusBadRequest}, false},
		{&HTTPStatusError{StatusCode: http.StatusTooManyRequests}, true},
		{&HTTPStatusError{StatusCode: http.StatusBadGateway}, true},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		if got := countsAsFailure(tc.err); got != tc.want {
			t.Fatalf("countsAsFailure(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestGeneratorOpenCircuitIsTemporaryError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"The engine is currently overloaded"}}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	generator := NewGenerator(New(server.URL, "sk-test", "m", exec))

	for i := 0; i < 2; i++ {
		_, err := generator.GenerateAnswer(context.Background(), "c", "q")
		if domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("call %d: breaker opened too early: %v", i, err)
		}
	}

	_, err := generator.GenerateAnswer(context.Background(), "c", "q")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error from open circuit, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("open circuit must not reach the provider, hits=%d", hits)
	}
}
