// Package heartbeat records each poller's last attempt and derives a display status.
package heartbeat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/timeutil"
)

type Status string

const (
	StatusRunning Status = "Running"
	StatusError   Status = "Error"
	StatusIdle    Status = "Idle"
	StatusStopped Status = "Stopped"
)

const (
	runningWithin = 2 * time.Minute
	idleWithin    = 10 * time.Minute
)

// ErrNotFound is returned when no heartbeat has been written for a feed.
var ErrNotFound = errors.New("heartbeat not found")

// Record is the on-disk heartbeat. LastFetch is epoch milliseconds.
type Record struct {
	Status    Status `json:"status"`
	LastFetch int64  `json:"lastFetch"`
	Message   string `json:"message,omitempty"`
}

// FileName returns the heartbeat file name for a feed file, e.g. nfl.json -> nfl_heartbeat.json.
func FileName(feedFile string) string {
	stem := strings.TrimSuffix(feedFile, filepath.Ext(feedFile))
	return stem + "_heartbeat.json"
}

// Writer persists heartbeats in one status directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates dir if missing.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create status dir: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Dir returns the status directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Running records a successful attempt.
func (w *Writer) Running(feedFile string) error {
	return w.Write(feedFile, Record{Status: StatusRunning, LastFetch: timeutil.EpochMillis(w.now())})
}

// Failed records a failed attempt with its message.
func (w *Writer) Failed(feedFile, message string) error {
	return w.Write(feedFile, Record{Status: StatusError, LastFetch: timeutil.EpochMillis(w.now()), Message: message})
}

// Write replaces the heartbeat for feedFile.
func (w *Writer) Write(feedFile string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := feedstore.WriteFileAtomic(w.dir, FileName(feedFile), data); err != nil {
		return fmt.Errorf("write heartbeat for %s: %w", feedFile, err)
	}
	return nil
}

// Read loads the heartbeat for feedFile from dir.
func Read(dir, feedFile string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName(feedFile)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode heartbeat for %s: %w", feedFile, err)
	}
	return rec, nil
}

// Assessment is the display view of one heartbeat.
type Assessment struct {
	Feed       string     `json:"feed"`
	Status     Status     `json:"status"`
	Message    string     `json:"message"`
	LastFetch  *time.Time `json:"lastFetch,omitempty"`
	AgeSeconds float64    `json:"ageSeconds"`
}

// Assess classifies a heartbeat read result. An Error record stays Error regardless of age.
func Assess(feed string, rec Record, readErr error, now time.Time) Assessment {
	a := Assessment{Feed: feed, Status: StatusStopped}
	if readErr != nil {
		if errors.Is(readErr, ErrNotFound) {
			a.Message = "no heartbeat recorded"
			return a
		}
		a.Status = StatusError
		a.Message = readErr.Error()
		return a
	}

	if rec.LastFetch > 0 {
		last := timeutil.FromEpochMillis(rec.LastFetch)
		a.LastFetch = &last
		a.AgeSeconds = now.Sub(last).Seconds()
	}
	age := time.Duration(a.AgeSeconds * float64(time.Second))

	switch {
	case rec.Status == StatusError:
		a.Status = StatusError
		a.Message = rec.Message
		if a.Message == "" {
			a.Message = "fetch failed"
		}
	case a.LastFetch == nil:
		a.Message = "no successful fetch"
	case age < runningWithin:
		a.Status = StatusRunning
		a.Message = "active within last 2 minutes"
	case age < idleWithin:
		a.Status = StatusIdle
		a.Message = fmt.Sprintf("no updates for %.1f min", age.Minutes())
	default:
		a.Message = fmt.Sprintf("no updates for %.1f min", age.Minutes())
	}
	return a
}

// AssessAll reads and classifies the heartbeat of every feed file in order.
func AssessAll(dir string, feedFiles []string, now time.Time) []Assessment {
	out := make([]Assessment, 0, len(feedFiles))
	for _, f := range feedFiles {
		rec, err := Read(dir, f)
		out = append(out, Assess(f, rec, err, now))
	}
	return out
}
