// Package ai generates title and description suggestions through the Gemini
// generateContent API. Failures are classified into the domain taxonomy the
// same way provider API failures are.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
)

// DefaultEndpoint is the production API root.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is used when the config names none.
const DefaultModel = "gemini-2.0-flash"

const maxErrorBody = 32 * 1024

// Client calls the generation API with a service-owned key. Generation is
// not tied to any user's provider credential.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
	timeout  time.Duration

	auditLog *audit.Logger
	log      *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API root. Used by tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAudit attaches the audit logger.
func WithAudit(a *audit.Logger) Option {
	return func(c *Client) {
		c.auditLog = a
	}
}

// NewClient creates a Client. An empty API key is a deployment error.
func NewClient(apiKey string, log *logging.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &errors.ErrConfiguration{Setting: "ai.api_key", Reason: "must not be empty"}
	}
	c := &Client{
		endpoint: DefaultEndpoint,
		model:    DefaultModel,
		apiKey:   apiKey,
		http:     &http.Client{},
		timeout:  30 * time.Second,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends a prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, userID, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &errors.ErrMalformed{Reason: "prompt must not be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", &errors.ErrUpstream{Operation: "ai.generate", Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &errors.ErrUpstream{Operation: "ai.generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &errors.ErrUpstream{Operation: "ai.generate", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := classify(resp.StatusCode, raw)
		c.log.WarnWithContext(ctx, "generation call failed",
			"status", resp.StatusCode,
			"kind", string(errors.KindOf(classified)))
		return "", classified
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &errors.ErrUpstream{Operation: "ai.generate", StatusCode: resp.StatusCode, Err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &errors.ErrUpstream{Operation: "ai.generate", Err: fmt.Errorf("response carried no candidates")}
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	if c.auditLog != nil {
		c.auditLog.Record(audit.NewEvent(audit.AIGeneration).
			WithUserID(userID).
			WithField("model", c.model))
	}
	return text.String(), nil
}

// classify is the generation-side peer of the provider classifier: quota,
// auth, or generic upstream. Anything unrecognized stays UpstreamError.
func classify(statusCode int, body []byte) error {
	var parsed struct {
		Error struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	switch {
	case statusCode == 429 || parsed.Error.Status == "RESOURCE_EXHAUSTED":
		return &errors.ErrQuotaExceeded{Operation: "ai.generate"}
	case statusCode == 401 || statusCode == 403:
		return &errors.ErrConfiguration{Setting: "ai.api_key", Reason: "generation service rejected the key"}
	default:
		return &errors.ErrUpstream{Operation: "ai.generate", StatusCode: statusCode}
	}
}
