package providers

import "context"

// Fetcher retrieves the raw body of one feed URL.
// Implementations return *StatusError or *RateLimitError for unsuccessful HTTP responses.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
