// Package advisory talks to the external text-generation service that writes
// operational reports for emergency services.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
)

// maxErrorBody caps how much of a failed response body ends up in the error.
const maxErrorBody = 512

// Client implements domain.Advisor over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an advisory client posting to url.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

type request struct {
	Scope   string                 `json:"scope"`
	Context domain.AdvisoryContext `json:"context"`
}

type response struct {
	Text string `json:"text"`
}

// Advise posts the scope and context and returns the generated text unparsed.
func (c *Client) Advise(ctx context.Context, scope string, advisory domain.AdvisoryContext) (string, error) {
	body, err := json.Marshal(request{Scope: scope, Context: advisory})
	if err != nil {
		return "", fmt.Errorf("encode advisory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	text, err := c.do(req)
	c.metrics.AdvisoryAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.AdvisoryRequests.WithLabelValues("error").Inc()
		return "", err
	}
	c.metrics.AdvisoryRequests.WithLabelValues("success").Inc()
	c.logger.Debug("advisory reply received", "scope", scope, "bytes", len(text))
	return text, nil
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("advisory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("advisory API error: status %d: %s", resp.StatusCode, b)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
