package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/teststubs"
)

const (
	proBody     = `{"sports":[{"leagues":[{"events":[{"id":"p1","competitors":[]},{"id":"p2","competitors":[]}]}]}]}`
	collegeBody = `{"events":[{"id":"c1","competitions":[{"competitors":[]}]}]}`
)

func newTestAggregator(t *testing.T) (*Aggregator, *teststubs.StubFileWriter, *teststubs.StubSink, *metrics.Recorder) {
	t.Helper()
	files := &teststubs.StubFileWriter{}
	sink := teststubs.NewStubSink()
	rec := metrics.NewRecorder()
	agg := New(Config{Reader: files, Sink: sink, Metrics: rec})
	agg.now = func() time.Time { return time.UnixMilli(42) }
	return agg, files, sink, rec
}

func ids(t *testing.T, agg *Aggregator) []string {
	t.Helper()
	var out []string
	for _, g := range agg.Current() {
		out = append(out, g.IDString())
	}
	return out
}

func TestReloadReplacesEntryAndBroadcasts(t *testing.T) {
	agg, files, sink, rec := newTestAggregator(t)
	agg.Register("nfl.json")
	agg.Register("ncaaf.json")

	_ = files.Write("ncaaf.json", []byte(collegeBody))
	_ = files.Write("nfl.json", []byte(proBody))

	if err := agg.Reload(context.Background(), "ncaaf.json"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := agg.Reload(context.Background(), "nfl.json"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	got := ids(t, agg)
	if len(got) != 3 || got[0] != "p1" || got[1] != "p2" || got[2] != "c1" {
		t.Fatalf("expected registration order, got %v", got)
	}
	msgs := sink.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected a broadcast per reload, got %d", len(msgs))
	}
	if msgs[1].Event != "gameUpdate" || len(msgs[1].Data) != 3 || msgs[1].Timestamp != 42 {
		t.Fatalf("unexpected broadcast %+v", msgs[1])
	}
	if snap := rec.Snapshot("nfl.json"); snap.Reloads != 1 || snap.LastGames != 2 {
		t.Fatalf("unexpected reload metrics %+v", snap)
	}
	if p := rec.Pipeline(); p.Broadcasts != 2 || p.LastBroadcast != 3 {
		t.Fatalf("unexpected broadcast metrics %+v", p)
	}
}

func TestReloadCorruptFileEmptiesOnlyThatEntry(t *testing.T) {
	agg, files, _, rec := newTestAggregator(t)
	agg.Register("nfl.json")
	agg.Register("ncaaf.json")
	_ = files.Write("nfl.json", []byte(proBody))
	_ = files.Write("ncaaf.json", []byte(collegeBody))
	_ = agg.Reload(context.Background(), "nfl.json")
	_ = agg.Reload(context.Background(), "ncaaf.json")

	_ = files.Write("nfl.json", []byte(`{"sports":[`))
	if err := agg.Reload(context.Background(), "nfl.json"); err == nil {
		t.Fatalf("expected parse error to be reported")
	}

	nfl, ok := agg.CurrentFor("nfl.json")
	if !ok || len(nfl) != 0 || nfl == nil {
		t.Fatalf("expected empty non-nil entry for corrupt file, got %v ok=%v", nfl, ok)
	}
	if got := ids(t, agg); len(got) != 1 || got[0] != "c1" {
		t.Fatalf("expected other feed untouched, got %v", got)
	}
	if rec.Snapshot("nfl.json").ParseErrors != 1 {
		t.Fatalf("expected parse error recorded")
	}
}

func TestReloadMissingFileYieldsEmptyEntry(t *testing.T) {
	agg, _, sink, _ := newTestAggregator(t)
	agg.Register("nfl.json")

	if err := agg.Reload(context.Background(), "nfl.json"); err == nil {
		t.Fatalf("expected missing file reported")
	}
	if len(agg.Current()) != 0 {
		t.Fatalf("expected no games")
	}
	if len(sink.Messages()) != 1 {
		t.Fatalf("expected broadcast even when file missing")
	}
}

func TestReloadUnregisteredFile(t *testing.T) {
	agg, _, sink, _ := newTestAggregator(t)
	if err := agg.Reload(context.Background(), "ghost.json"); !errors.Is(err, ErrUnregistered) {
		t.Fatalf("expected ErrUnregistered, got %v", err)
	}
	if len(agg.Files()) != 0 || len(sink.Messages()) != 0 {
		t.Fatalf("expected unregistered reload to be ignored")
	}
}

func TestBroadcastReportsSinkError(t *testing.T) {
	agg, _, sink, _ := newTestAggregator(t)
	sink.Err = teststubs.ErrStub
	if err := agg.Broadcast(context.Background()); !errors.Is(err, teststubs.ErrStub) {
		t.Fatalf("expected sink error, got %v", err)
	}
	last, ok := sink.Last()
	if !ok || last.Data == nil || len(last.Data) != 0 {
		t.Fatalf("expected empty array broadcast, got %+v", last)
	}
}

func TestBroadcastWithoutSink(t *testing.T) {
	agg := New(Config{Reader: &teststubs.StubFileWriter{}})
	if err := agg.Broadcast(context.Background()); err != nil {
		t.Fatalf("expected nil sink to be tolerated, got %v", err)
	}
}

func TestRunRebroadcastsOnInterval(t *testing.T) {
	agg, files, sink, _ := newTestAggregator(t)
	agg.Register("nfl.json")
	_ = files.Write("nfl.json", []byte(proBody))
	_ = agg.Reload(context.Background(), "nfl.json")
	<-sink.Notify

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case msg := <-sink.Notify:
			if len(msg.Data) != 2 {
				t.Fatalf("expected last aggregate re-emitted, got %d games", len(msg.Data))
			}
		case <-time.After(time.Second):
			t.Fatalf("expected periodic broadcast")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}

func TestClearDropsEverything(t *testing.T) {
	agg, files, _, _ := newTestAggregator(t)
	agg.Register("nfl.json")
	_ = files.Write("nfl.json", []byte(proBody))
	_ = agg.Reload(context.Background(), "nfl.json")

	agg.Clear()
	if len(agg.Current()) != 0 || len(agg.Files()) != 0 {
		t.Fatalf("expected cleared state")
	}
	if _, ok := agg.CurrentFor("nfl.json"); ok {
		t.Fatalf("expected registration dropped")
	}
}

func TestRefreshDoesNotBroadcast(t *testing.T) {
	agg, files, sink, _ := newTestAggregator(t)
	agg.Register("nfl.json")
	_ = files.Write("nfl.json", []byte(proBody))

	if err := agg.Refresh("nfl.json"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(agg.Current()) != 2 {
		t.Fatalf("expected entry replaced")
	}
	if len(sink.Messages()) != 0 {
		t.Fatalf("expected no broadcast from refresh")
	}
}
