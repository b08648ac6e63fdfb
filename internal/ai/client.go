// Package ai provides the chat completion client used to answer mentions.
// It talks to any OpenAI-compatible /chat/completions endpoint and maps
// failures onto the relay's error taxonomy.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	errs "github.com/edgard/gptrelay/internal/errors"
	"github.com/edgard/gptrelay/internal/metrics"
)

// Message roles understood by chat completion endpoints.
const (
	RoleSystem    = gopenai.ChatMessageRoleSystem
	RoleUser      = gopenai.ChatMessageRoleUser
	RoleAssistant = gopenai.ChatMessageRoleAssistant
)

// Message is one role-tagged conversational turn.
type Message struct {
	Role    string
	Content string
}

// Completer generates assistant replies. Handlers depend on this interface
// so tests can replace network calls.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// SingleTurn builds the message list for one user prompt, preceded by the
// system prompt when one is configured.
func SingleTurn(systemPrompt, prompt string) []Message {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return append(msgs, Message{Role: RoleUser, Content: prompt})
}

// Config holds the endpoint settings of a Client.
type Config struct {
	APIKey  string
	BaseURL string        // e.g. https://api.openai.com/v1
	Timeout time.Duration // applied to every call
}

// Client implements Completer on top of go-openai.
type Client struct {
	api     *gopenai.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ Completer = (*Client)(nil)

// NewClient creates a completion client for the given endpoint.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.NewConfigurationError("completion api key is empty", nil)
	}
	if cfg.BaseURL == "" {
		return nil, errs.NewConfigurationError("completion base url is empty", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := gopenai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		api:     gopenai.NewClientWithConfig(apiCfg),
		timeout: cfg.Timeout,
		logger:  logger.With("component", "completion_client"),
	}, nil
}

// Complete sends a single chat completion request and returns the content
// of the first choice. It makes exactly one attempt.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := gopenai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]gopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, gopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	text, usage, err := c.do(ctx, req)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = errs.Code(err)
	}
	metrics.ObserveCompletion(model, outcome, elapsed)
	metrics.AddTokenUsage(model, usage.PromptTokens, usage.CompletionTokens)

	if err != nil {
		c.logger.DebugContext(ctx, "Chat completion failed", "model", model, "error_code", errs.Code(err), "duration", elapsed)
		return "", err
	}

	c.logger.DebugContext(ctx, "Chat completion succeeded",
		"model", model,
		"duration", elapsed,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens)

	return text, nil
}

func (c *Client) do(ctx context.Context, req gopenai.ChatCompletionRequest) (string, gopenai.Usage, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", gopenai.Usage{}, classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", resp.Usage, errs.NewParseError("response has no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", resp.Usage, errs.NewParseError("response has empty content", nil)
	}

	return content, resp.Usage, nil
}

// classify maps an error returned by go-openai onto the relay taxonomy:
// timeouts and non-2xx answers are upstream errors, undecodable bodies are
// parse errors and transport failures are network errors.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.NewUpstreamError("completion request timed out", 0, err)
	}

	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return errs.NewUpstreamError(fmt.Sprintf("completion endpoint returned status %d", apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, err)
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return errs.NewUpstreamError(fmt.Sprintf("completion endpoint returned status %d", reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.NewUpstreamError("completion request timed out", 0, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || netErr != nil || errors.Is(err, context.Canceled) {
		return errs.NewNetworkError("completion request failed", err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.NewParseError("malformed completion response", err)
	}

	return errs.NewUpstreamError("completion request rejected", 0, err)
}
