package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrorKind classifies an outbound fetch failure.
type ErrorKind string

const (
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindForbidden   ErrorKind = "forbidden"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindUpstream    ErrorKind = "upstream_failure"
	ErrKindNetwork     ErrorKind = "network"
	ErrKindParse       ErrorKind = "parse_error"
	ErrKindUnexpected  ErrorKind = "unexpected"
)

// FetchError is a classified failure talking to an external source.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch %s: %v for %s", e.Kind, e.Cause, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// IsRateLimited reports whether err is an HTTP 429 FetchError.
func IsRateLimited(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == ErrKindRateLimited
}

func classifyStatus(statusCode int, rawURL string) *FetchError {
	fetchErr := &FetchError{StatusCode: statusCode, URL: redactURL(rawURL), Cause: fmt.Errorf("HTTP %d", statusCode)}

	switch {
	case statusCode == http.StatusTooManyRequests:
		fetchErr.Kind = ErrKindRateLimited
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		fetchErr.Kind = ErrKindForbidden
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		fetchErr.Kind = ErrKindNotFound
	case statusCode >= 500 && statusCode <= 599:
		fetchErr.Kind = ErrKindUpstream
	default:
		fetchErr.Kind = ErrKindUnexpected
	}

	return fetchErr
}

func parseError(cause error, rawURL string) *FetchError {
	return &FetchError{Kind: ErrKindParse, URL: redactURL(rawURL), Cause: cause}
}

// redactURL drops credentials carried in the query string so they never reach logs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Client performs GET requests against external sources with a per-call timeout.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{httpClient: httpClient, userAgent: userAgent, timeout: timeout}
}

// Get fetches rawURL and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: ErrKindNetwork, URL: redactURL(rawURL), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, classifyStatus(resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrKindNetwork, URL: redactURL(rawURL), Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}
