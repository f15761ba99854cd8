package providers

import (
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	// Scoreboard payloads are a few hundred KB; cap well above that.
	defaultMaxBodyBytes = 32 << 20
	defaultUserAgent    = "scoreboard-feed-service"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func resolveHTTPClient(client *http.Client, timeout time.Duration) httpDoer {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: resolveTimeout(timeout)}
}

func resolveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultHTTPTimeout
	}
	return timeout
}

func resolveMaxBody(limit int64) int64 {
	if limit <= 0 {
		return defaultMaxBodyBytes
	}
	return limit
}
