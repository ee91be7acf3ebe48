// Package fetch implements the bounded-retry page fetcher shared by every
// supplier adapter.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/partdesk/ingest/config"
)

// retryable holds the transient status codes worth another GET attempt.
// Non-idempotent calls (session POSTs, commerce writes) are never retried
// here; they run their own state machines.
var retryable = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// HeaderProfile is the pluggable set of headers applied to every request.
type HeaderProfile struct {
	UserAgent string
	Extra     map[string]string
}

// Fetcher wraps an http.Client with a cookie jar, a rate limiter, and
// bounded retry for idempotent GETs. One Fetcher per adapter instance so
// session cookies are never shared across suppliers.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	headers HeaderProfile

	maxRetries int
	backoff    time.Duration
	backoffMax time.Duration

	retries atomic.Int64
}

// New builds a fetcher from run configuration and a header profile.
func New(cfg *config.Config, headers HeaderProfile) *Fetcher {
	jar, _ := cookiejar.New(nil)
	if headers.UserAgent == "" {
		headers.UserAgent = cfg.UserAgent
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		headers:    headers,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		backoffMax: cfg.RetryBackoffMax,
	}
}

// SetTransport swaps the underlying transport. Used by tests.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.client.Transport = rt
}

// Client exposes the underlying client for collaborators that manage their
// own requests against the same session (site search, media download).
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Retries reports how many retry attempts this fetcher has performed.
func (f *Fetcher) Retries() int {
	return int(f.retries.Load())
}

// Page fetches a URL and parses it into a RawPage. The page URL is the
// final URL after redirects.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (*RawPage, error) {
	body, finalURL, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return NewRawPage(finalURL, body)
}

// Get performs a GET with bounded retry on transient status codes and
// timeouts. It returns the body and the final URL after redirects.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	var lastStatus int
	var lastErr error

	attempts := f.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			f.retries.Add(1)
			delay := f.retryDelay(attempt - 1)
			slog.Debug("retrying fetch",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(delay):
			}
		}

		body, finalURL, status, err := f.once(ctx, rawURL)
		switch {
		case err == nil && status < http.StatusBadRequest:
			return body, finalURL, nil
		case status == http.StatusNotFound:
			return nil, "", ErrNotFound{URL: rawURL}
		case err != nil && !isTimeout(err):
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			lastErr = err
		default:
			lastStatus, lastErr = status, err
			if _, ok := retryable[status]; !ok && err == nil {
				return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, status)
			}
		}
	}
	return nil, "", ErrTransient{Status: lastStatus, Err: lastErr}
}

// Post performs a POST without any retry. The caller owns the response.
func (f *Fetcher) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	f.applyHeaders(req)
	req.Header.Set("Content-Type", contentType)
	return f.client.Do(req)
}

// PostForm submits URL-encoded form values without retry.
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, values url.Values) (*http.Response, error) {
	return f.Post(ctx, rawURL, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

func (f *Fetcher) once(ctx context.Context, rawURL string) (body []byte, finalURL string, status int, err error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("build request: %w", err)
	}
	f.applyHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.Request.URL.String(), resp.StatusCode, nil
}

func (f *Fetcher) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.headers.UserAgent)
	for k, v := range f.headers.Extra {
		req.Header.Set(k, v)
	}
}

func (f *Fetcher) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := f.backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if f.backoffMax > 0 && delay > f.backoffMax {
		delay = f.backoffMax
	}
	return delay
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
