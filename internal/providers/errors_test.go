package providers

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRateLimitErrorString(t *testing.T) {
	err := &RateLimitError{
		Provider:   "p",
		StatusCode: 429,
		Message:    "rate limited",
	}
	if got := err.Error(); got == "" || got == "rate limited" {
		t.Fatalf("expected status in error string, got %q", got)
	}

	rl, ok := AsRateLimitError(err)
	if !ok || rl == nil {
		t.Fatalf("expected to unwrap rate limit error")
	}

	noStatus := &RateLimitError{}
	if got := noStatus.Error(); got == "" {
		t.Fatalf("expected fallback message")
	}
}

func TestStatusErrorString(t *testing.T) {
	err := &StatusError{URL: "http://x", StatusCode: 503}
	if got := err.Error(); got != "unexpected status 503 from http://x" {
		t.Fatalf("unexpected message %q", got)
	}
	withBody := &StatusError{URL: "http://x", StatusCode: 500, Body: "boom"}
	if got := withBody.Error(); got != "unexpected status 500 from http://x: boom" {
		t.Fatalf("unexpected message %q", got)
	}

	wrapped := fmt.Errorf("poll: %w", err)
	st, ok := AsStatusError(wrapped)
	if !ok || st.StatusCode != 503 {
		t.Fatalf("expected to unwrap status error, got %v", st)
	}
	if _, ok := AsRateLimitError(wrapped); ok {
		t.Fatalf("status error must not match rate limit")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 10, 5, 18, 0, 0, 0, time.UTC)
	cases := []struct {
		raw      string
		expected time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"-5", 0},
		{"garbage", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, c := range cases {
		if got := parseRetryAfter(c.raw, now); got != c.expected {
			t.Fatalf("expected %s for %q, got %s", c.expected, c.raw, got)
		}
	}
}
