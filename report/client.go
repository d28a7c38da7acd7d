package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransportError is a non-success HTTP outcome. It is surfaced verbatim to
// the user and is only retryable manually; this layer never retries.
type TransportError struct {
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching report: %s", e.Status)
}

// Client fetches reports over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption customizes the report client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a report client for the given base URL
// (e.g. "https://example.com").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchReport performs an idempotent GET of the report by identifier.
func (c *Client) FetchReport(ctx context.Context, reportID string) (*Report, error) {
	if _, err := uuid.Parse(reportID); err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", reportID, err)
	}

	url := fmt.Sprintf("%s/mirror/api/insights/%s/", c.baseURL, reportID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var rep Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	if rep.UUID == "" {
		rep.UUID = reportID
	}
	return &rep, nil
}
