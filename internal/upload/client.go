package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ImportResult mirrors the server's import stats without importing the
// server-side packages.
type ImportResult struct {
	Received    int `json:"received"`
	Imported    int `json:"imported"`
	Duplicates  int `json:"duplicates"`
	Quarantined int `json:"quarantined"`
}

// Client sends workout exports to the ironlog server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the ironlog server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// permanentError marks a response that retrying won't fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Content types accepted by the import endpoint.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// SendExport POSTs a workout export to the server's import endpoint.
// Retries up to 3 times with exponential backoff on network errors and 5xx
// responses; a 4xx response fails immediately.
func (c *Client) SendExport(ctx context.Context, data []byte, contentType, source string) (*ImportResult, error) {
	u := c.serverURL + "/api/v1/import?" + url.Values{"source": {source}}.Encode()

	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		result, err := c.post(ctx, u, data, contentType)
		if err == nil {
			return result, nil
		}
		if _, ok := err.(*permanentError); ok {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) post(ctx context.Context, u string, data []byte, contentType string) (*ImportResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, &permanentError{fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &permanentError{fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, body)}
	default:
		return nil, fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	var result ImportResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding import result: %w", err)
	}
	return &result, nil
}
