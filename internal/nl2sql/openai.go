package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/observability"
)

var ErrMissingAPIKey = errors.New("completion api key is not configured")

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Logger      *slog.Logger
	HTTPClient  *http.Client
}

// Client talks to an OpenAI-compatible chat completions endpoint such as Groq.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama3-70b-8192"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      httpClient,
		logger:      logger,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, directive, question string) Completion {
	started := time.Now()
	text, err := c.complete(ctx, directive, question)
	elapsed := time.Since(started)
	observability.ObserveCompletion(err == nil, elapsed)
	if err != nil {
		c.logger.ErrorContext(ctx, "completion_failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("model", c.model),
			slog.String("duration", elapsed.String()),
			slog.String("error", err.Error()),
		)
		return failed(c.model, started, err)
	}
	c.logger.DebugContext(ctx, "completion_ok",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("model", c.model),
		slog.String("duration", elapsed.String()),
	)
	return Completion{Text: text, Model: c.model, Duration: elapsed}
}

func (c *Client) complete(ctx context.Context, directive, question string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(buildChatPayload(c.model, c.temperature, directive, question))
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(rawRespBody)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}

	text := stripMarkdownSQL(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model returned empty statement")
	}
	return text, nil
}

func buildChatPayload(model string, temperature float64, directive, question string) map[string]any {
	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": directive + "\n\nQuestion: " + strings.TrimSpace(question)},
		},
		"temperature": temperature,
	}
}

// stripMarkdownSQL removes fences and a leading "SQL" label that models emit
// despite being told not to.
func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```SQL")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "sql:") {
		trimmed = strings.TrimSpace(trimmed[4:])
	}
	return trimmed
}
