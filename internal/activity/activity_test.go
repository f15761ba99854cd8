package activity

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T, maxEntries int) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "activity.db"), maxEntries)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	l := openTestLog(t, 0)
	base := time.Date(2024, 11, 5, 18, 0, 0, 0, time.UTC)
	step := 0
	l.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	ctx := context.Background()

	_ = l.Info(ctx, "pipeline started")
	_ = l.Warn(ctx, "config rejected")
	_ = l.Record(ctx, " error ", "fetch failed")
	_ = l.Record(ctx, "", "no level")

	got, err := l.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Message != "no level" || got[0].Level != LevelInfo {
		t.Fatalf("expected newest first with default level, got %+v", got[0])
	}
	if got[1].Level != LevelError || got[2].Level != LevelWarn {
		t.Fatalf("unexpected levels %+v", got)
	}
	if !got[2].At.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("unexpected timestamp %v", got[2].At)
	}
}

func TestRecordTrimsToCap(t *testing.T) {
	l := openTestLog(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.Info(ctx, fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 || got[0].Message != "entry 4" || got[2].Message != "entry 2" {
		t.Fatalf("expected newest three kept, got %+v", got)
	}
}

func TestRecentDefaultLimitAndEmpty(t *testing.T) {
	l := openTestLog(t, 50)
	got, err := l.Recent(context.Background(), 0)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", got, err)
	}
	for i := 0; i < 12; i++ {
		_ = l.Info(context.Background(), "x")
	}
	got, _ = l.Recent(context.Background(), 0)
	if len(got) != DefaultRecent {
		t.Fatalf("expected default limit %d, got %d", DefaultRecent, len(got))
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.db")
	l, err := Open(path, 10)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = l.Info(context.Background(), "persisted")
	_ = l.Close()

	l, err = Open(path, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	got, _ := l.Recent(context.Background(), 1)
	if len(got) != 1 || got[0].Message != "persisted" {
		t.Fatalf("expected entry to survive reopen, got %+v", got)
	}
}

func TestClosedLog(t *testing.T) {
	l := openTestLog(t, 10)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := l.Info(context.Background(), "late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := l.Recent(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNilLogIsNoop(t *testing.T) {
	var l *Log
	if err := l.Info(context.Background(), "x"); err != nil {
		t.Fatalf("expected nil log to ignore records, got %v", err)
	}
	got, err := l.Recent(context.Background(), 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty recent from nil log")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("expected nil close to succeed")
	}
}

func TestOnRecordReceivesStoredEntry(t *testing.T) {
	l := openTestLog(t, 0)
	at := time.Date(2024, 11, 5, 18, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }
	var seen []Entry
	l.OnRecord(func(e Entry) { seen = append(seen, e) })
	ctx := context.Background()

	if err := l.Warn(ctx, "feeds config rejected"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected one notification, got %d", len(seen))
	}
	stored, err := l.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if got, want := seen[0], stored[0]; got.ID != want.ID || !got.At.Equal(want.At) || got.Level != want.Level || got.Message != want.Message {
		t.Fatalf("expected notified entry to match stored row, got %+v want %+v", got, want)
	}

	_ = l.Close()
	if err := l.Info(ctx, "after close"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected no notification for a failed record")
	}
	var nilLog *Log
	nilLog.OnRecord(func(Entry) {})
}
