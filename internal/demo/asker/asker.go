// Package asker drives a running API with a steady stream of sample
// questions, for demos and for exercising dashboards.
package asker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
	tally     map[string]int
	asked     int
}

type askRequest struct {
	Question string `json:"question"`
	Database string `json:"database,omitempty"`
}

type askResponse struct {
	Operation string `json:"operation"`
	Table     string `json:"table"`
	SQL       string `json:"sql"`
	Outcome   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"outcome"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed, cfg.WriteRatio),
		tally:     map[string]int{},
	}, nil
}

// Run asks one question per interval until ctx is done or MaxAsks questions
// have been asked.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.askOnce(ctx); err != nil {
			s.log.Error("demo question failed", slog.Any("error", err))
		}
		if s.cfg.MaxAsks > 0 && s.asked >= s.cfg.MaxAsks {
			s.log.Info("demo asker finished", slog.Int("asked", s.asked), slog.Any("outcomes", s.Tally()))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tally returns how many answers ended in each outcome kind so far.
// Transport and HTTP failures are counted under "request_error".
func (s *Service) Tally() map[string]int {
	out := make(map[string]int, len(s.tally))
	for kind, n := range s.tally {
		out[kind] = n
	}
	return out
}

func (s *Service) askOnce(ctx context.Context) error {
	question := s.generator.NextQuestion()
	s.asked++

	var response askResponse
	status, body, err := s.doJSON(ctx, askRequest{Question: question, Database: s.cfg.Database}, &response)
	if err != nil {
		s.tally["request_error"]++
		return fmt.Errorf("ask request failed: %w", err)
	}
	if status != http.StatusOK {
		s.tally["request_error"]++
		return fmt.Errorf("ask request status %d: %s", status, strings.TrimSpace(string(body)))
	}

	s.tally[response.Outcome.Kind]++
	s.log.Info(
		"demo question answered",
		slog.String("question", question),
		slog.String("operation", response.Operation),
		slog.String("table", response.Table),
		slog.String("sql", response.SQL),
		slog.String("outcome", response.Outcome.Kind),
	)
	return nil
}

func (s *Service) doJSON(ctx context.Context, requestBody any, responseBody any) (int, []byte, error) {
	raw, err := json.Marshal(requestBody)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/v1/ask", bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode == http.StatusOK && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return resp.StatusCode, body, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
