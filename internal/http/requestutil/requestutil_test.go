package requestutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSanitizeRequestID(t *testing.T) {
	if got := SanitizeRequestID("valid-123"); got != "valid-123" {
		t.Fatalf("expected pass-through, got %s", got)
	}
	if got := SanitizeRequestID("bad id"); got == "" || got == "bad id" {
		t.Fatalf("expected sanitized id, got %s", got)
	}
	if _, err := uuid.Parse(NewRequestID()); err != nil {
		t.Fatalf("expected uuid request id, got %v", err)
	}
	useFallback.Store(true)
	defer useFallback.Store(false)
	if got := NewRequestID(); got == "" {
		t.Fatalf("expected fallback request id when RNG fails")
	}
}

func TestClientIP(t *testing.T) {
	if got := ClientIP(nil); got != "" {
		t.Fatalf("expected empty for nil request, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	if got := ClientIP(req); got != "1.2.3.4" {
		t.Fatalf("expected first forwarded address, got %s", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	if got := ClientIP(req); got != "9.9.9.9" {
		t.Fatalf("expected remote host without port, got %s", got)
	}

	req.RemoteAddr = "pipe"
	if got := ClientIP(req); got != "pipe" {
		t.Fatalf("expected raw remote addr when it has no port, got %s", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer s3cret", want: "s3cret", ok: true},
		{header: "bearer s3cret ", want: "s3cret", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer ", ok: false},
		{header: "", ok: false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("BearerToken(%q) = %q,%v want %q,%v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := BearerToken(nil); ok {
		t.Fatalf("expected nil request to have no token")
	}
}

func TestTokenMatches(t *testing.T) {
	if TokenMatches("", "") {
		t.Fatalf("expected empty expected token to never match")
	}
	if !TokenMatches("abc", "abc") || TokenMatches("abc", "abd") {
		t.Fatalf("unexpected comparison result")
	}
}
