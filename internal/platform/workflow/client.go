// Package workflow is the client for the n8n workflow engine. Agent webhooks
// answer either with a bare envelope or with the envelope wrapped in a
// single-element array; both shapes decode through DecodeEnvelope and
// anything else counts as a generation failure.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrGeneration marks a webhook response that does not honour the envelope
// contract. Callers treat it as fatal to the current interaction.
var ErrGeneration = errors.New("workflow generation failed")

// envelope is the agreed webhook response contract.
type envelope struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
	Questionnaire json.RawMessage `json:"cuestionario"`
}

// Client POSTs payloads to n8n webhook paths.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New creates a Client for the n8n instance at baseURL.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Post sends the payload to the webhook at path and returns the raw response
// body. Non-2xx responses and transport failures are errors.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("webhook call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook %s: status %d: %w", path, resp.StatusCode, ErrGeneration)
	}
	return raw, nil
}

// DecodeEnvelope extracts the questionnaire document from a webhook response,
// accepting both the array-wrapped and the direct envelope shape. A missing
// or false success flag, an empty array, or an unparseable body all yield
// ErrGeneration.
func DecodeEnvelope(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty webhook response: %w", ErrGeneration)
	}

	var env envelope
	if trimmed[0] == '[' {
		var list []envelope
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("malformed webhook response: %w", ErrGeneration)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("empty webhook response array: %w", ErrGeneration)
		}
		env = list[0]
	} else {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("malformed webhook response: %w", ErrGeneration)
		}
	}

	if !env.Success {
		if env.Error != "" {
			return nil, fmt.Errorf("workflow reported %q: %w", env.Error, ErrGeneration)
		}
		return nil, fmt.Errorf("workflow reported failure: %w", ErrGeneration)
	}
	if len(env.Questionnaire) == 0 || string(env.Questionnaire) == "null" {
		return nil, fmt.Errorf("workflow response missing cuestionario: %w", ErrGeneration)
	}
	return env.Questionnaire, nil
}
