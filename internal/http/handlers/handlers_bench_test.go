package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkGames(b *testing.B) {
	h := NewHandler(Config{Pipeline: newStubPipeline()})
	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		h.Games(rr, req)
	}
}

func BenchmarkGamesByLeague(b *testing.B) {
	h := routed(NewHandler(Config{Pipeline: newStubPipeline()}))
	req := httptest.NewRequest(http.MethodGet, "/api/games/nfl", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
	}
}
