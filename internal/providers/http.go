package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPConfig controls how feeds are fetched.
type HTTPConfig struct {
	HTTPClient   *http.Client
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// HTTPFetcher performs a single GET per fetch. It never retries.
type HTTPFetcher struct {
	httpClient httpDoer
	timeout    time.Duration
	userAgent  string
	maxBody    int64
	logger     *slog.Logger
	now        func() time.Time
}

// NewHTTPFetcher constructs a fetcher with the provided configuration.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HTTPFetcher{
		httpClient: resolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
		timeout:    resolveTimeout(cfg.Timeout),
		userAgent:  ua,
		maxBody:    resolveMaxBody(cfg.MaxBodyBytes),
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Fetch returns the response body for rawURL. A timeout is an ordinary error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	start := f.now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:   hostOf(rawURL),
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), f.now()),
			Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
			Message:    "feed rate limited",
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("body from %s exceeds %d bytes", rawURL, f.maxBody)
	}

	logWithFeed(ctx, f.logger, slog.LevelDebug, rawURL, "feed fetched",
		slog.Int("bytes", len(body)),
		slog.Int64("duration_ms", f.now().Sub(start).Milliseconds()),
	)
	return body, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
