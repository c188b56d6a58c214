package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/infrastructure/resilience"
)

const (
	answerTemperature = 0.2
	answerMaxTokens   = 512

	chatCompletionsOperation = "openai.chat_completions"
)

// UsageObserver receives token accounting for each successful completion.
type UsageObserver func(model string, promptTokens, completionTokens int, duration time.Duration)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	observe    UsageObserver
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		httpClient: &http.Client{},
		executor:   executor,
	}
}

func (c *Client) WithUsageObserver(observe UsageObserver) *Client {
	c.observe = observe
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generator answers contract questions with a single stateless chat completion.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, contractText, question string) (string, error) {
	return g.client.complete(ctx, buildAnswerMessages(contractText, question))
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrNotConfigured, "chat completion", errors.New("completion provider credentials are missing"))
	}

	request := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	}

	start := time.Now()
	response, err := resilience.Call(ctx, c.executor, chatCompletionsOperation, func(ctx context.Context) (chatCompletionResponse, error) {
		var out chatCompletionResponse
		err := c.postJSON(ctx, "/chat/completions", request, &out, "chat completions")
		return out, err
	}, countsAsFailure)
	if err != nil {
		slog.WarnContext(ctx, "completion_failed", "model", c.model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", asProviderError(err)
	}

	if c.observe != nil {
		c.observe(c.model, response.Usage.PromptTokens, response.Usage.CompletionTokens, time.Since(start))
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
