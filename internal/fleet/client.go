package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches runner payloads from the fleet-status API.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	limiter    *rate.Limiter
}

// NewClient creates a fleet-status API client. url is the full endpoint
// returning the runners payload; token is sent as a bearer credential.
func NewClient(url, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		token:      token,
		// The monitor polls on the order of minutes; one request per
		// second is generous headroom and protects against a
		// misconfigured tight loop hammering the API.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

// Fetch retrieves one runners payload. The payload must contain a runners
// list; any other shape is an error.
func (c *Client) Fetch(ctx context.Context) (*Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch runners: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fleet API returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var payload struct {
		TotalCount int       `json:"total_count"`
		Runners    *[]Runner `json:"runners"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Runners == nil {
		return nil, fmt.Errorf("payload has no runners list")
	}
	return &Payload{TotalCount: payload.TotalCount, Runners: *payload.Runners}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
