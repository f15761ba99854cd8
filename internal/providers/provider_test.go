package providers

import (
	"context"
	"testing"
)

func TestFetcherFuncImplementsFetcher(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte(url), nil
	})
	got, err := f.Fetch(context.Background(), "x")
	if err != nil || string(got) != "x" {
		t.Fatalf("expected passthrough, got %q err=%v", got, err)
	}
}
