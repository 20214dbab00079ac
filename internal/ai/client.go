// Package ai – AI provider collaborator
//
// This package talks to an OpenAI-compatible chat completion endpoint. The
// store never produces AI results itself; it only consumes the Result a
// Provider returns. Transport and provider errors are reported inside the
// Result (Success=false) instead of as Go errors, so callers handle a single
// shape.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-companion-store/internal/domain"
)

// Chat roles understood by the provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxErrorBody caps how much of a failed response is echoed into Result.Error.
const maxErrorBody = 512

// Message is one turn of the conversation sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Config   domain.APIConfig
	Messages []Message
}

// Result is what a provider returns for one request.
type Result struct {
	Success bool          `json:"success"`
	Text    string        `json:"text,omitempty"`
	Tokens  *domain.Usage `json:"tokens,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Provider performs one request/response round trip.
type Provider interface {
	Complete(ctx context.Context, req Request) Result
}

// Client is the HTTP Provider. The zero value is usable.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

// NewClient returns a Client whose calls are bounded by timeout (0 = none).
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{}, Timeout: timeout}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete posts req to {endpoint}/chat/completions.
func (c *Client) Complete(ctx context.Context, req Request) Result {
	ctx, span := otel.Tracer("ai/Client").Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("ai.provider", req.Config.Provider),
			attribute.String("ai.model", req.Config.Model),
			attribute.Int("ai.messages", len(req.Messages)),
		),
	)
	defer span.End()

	res := c.complete(ctx, req)
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	} else if res.Tokens != nil {
		span.SetAttributes(attribute.Int64("ai.tokens.total", res.Tokens.Total))
	}
	return res
}

func (c *Client) complete(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Config.Endpoint) == "" {
		return failure(errors.New("no API endpoint configured"))
	}
	body, err := json.Marshal(completionRequest{
		Model:       req.Config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.Config.MaxTokens,
		Temperature: req.Config.Temperature,
	})
	if err != nil {
		return failure(err)
	}

	var out completionResponse
	if err := c.do(ctx, req.Config, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return failure(err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return failure(errors.New(out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return failure(errors.New("provider returned no choices"))
	}

	res := Result{Success: true, Text: out.Choices[0].Message.Content}
	if u := out.Usage; u != nil {
		total := u.TotalTokens
		if total == 0 {
			total = u.PromptTokens + u.CompletionTokens
		}
		res.Tokens = &domain.Usage{Input: u.PromptTokens, Output: u.CompletionTokens, Total: total}
	}
	return res
}

// ListModels returns the model ids offered at cfg.Endpoint, sorted.
func (c *Client) ListModels(ctx context.Context, cfg domain.APIConfig) ([]string, error) {
	ctx, span := otel.Tracer("ai/Client").Start(ctx, "ListModels",
		trace.WithAttributes(attribute.String("ai.provider", cfg.Provider)),
	)
	defer span.End()

	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("no API endpoint configured")
	}
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, cfg, http.MethodGet, "/models", nil, &out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) do(ctx context.Context, cfg domain.APIConfig, method, path string, body []byte, dst any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	url := strings.TrimRight(cfg.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
