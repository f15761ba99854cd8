package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderTracksFetchesAndErrors(t *testing.T) {
	rec := NewRecorder()
	rec.RecordFetch("nfl.json", 10*time.Millisecond, nil)
	rec.RecordFetch("nfl.json", 15*time.Millisecond, errors.New("boom"))

	snap := rec.Snapshot("nfl.json")
	if snap.Fetches != 2 || snap.FetchErrors != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.LastFetchLatency != 15*time.Millisecond {
		t.Fatalf("expected last latency to be 15ms, got %s", snap.LastFetchLatency)
	}
	if other := rec.Snapshot("ncaaf.json"); other.Fetches != 0 {
		t.Fatalf("expected feeds to be tracked independently, got %+v", other)
	}
}

func TestRecorderTracksRateLimits(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRateLimit("nfl.json", 5*time.Second)
	rec.RecordRateLimit("nfl.json", 0)

	snap := rec.Snapshot("nfl.json")
	if snap.RateLimitHits != 2 {
		t.Fatalf("expected 2 rate limit hits, got %d", snap.RateLimitHits)
	}
	if snap.LastRetryAfter != 5*time.Second {
		t.Fatalf("expected last retry-after to be 5s, got %s", snap.LastRetryAfter)
	}
}

func TestRecorderTracksReloads(t *testing.T) {
	rec := NewRecorder()
	rec.RecordReload("nfl.json", 14, nil)
	rec.RecordReload("nfl.json", 0, errors.New("bad json"))

	snap := rec.Snapshot("nfl.json")
	if snap.Reloads != 2 || snap.ParseErrors != 1 || snap.LastGames != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRecorderTracksPipelineCounters(t *testing.T) {
	rec := NewRecorder()
	rec.RecordBroadcast(12)
	rec.RecordBroadcast(7)
	rec.RecordSubscribers(1)
	rec.RecordSubscribers(1)
	rec.RecordSubscribers(-1)
	rec.RecordSinkError("redis")
	rec.RecordConfigReload(nil)
	rec.RecordConfigReload(errors.New("invalid"))

	p := rec.Pipeline()
	if p.Broadcasts != 2 || p.LastBroadcast != 7 {
		t.Fatalf("unexpected broadcast counters %+v", p)
	}
	if p.Subscribers != 1 || p.SinkErrors != 1 {
		t.Fatalf("unexpected subscriber/sink counters %+v", p)
	}
	if p.ConfigApplied != 1 || p.ConfigRejected != 1 {
		t.Fatalf("unexpected config counters %+v", p)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.RecordFetch("nfl.json", time.Millisecond, nil)
	rec.RecordRateLimit("nfl.json", time.Second)
	rec.RecordReload("nfl.json", 1, nil)
	rec.RecordBroadcast(1)
	rec.RecordSubscribers(1)
	rec.RecordSinkError("kafka")
	rec.RecordConfigReload(nil)
	rec.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	rec.RecordPollerCycle("nfl.json", time.Millisecond, nil)

	if rec.Snapshot("nfl.json") != (Snapshot{}) || rec.Pipeline() != (PipelineSnapshot{}) {
		t.Fatal("expected zero snapshots from nil recorder")
	}
}
