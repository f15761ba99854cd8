package feeds

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/watcher"
)

// Editors commonly truncate then write, so wait for the file to settle.
const defaultSourceDebounce = 200 * time.Millisecond

// Source watches the feeds config file and reports content changes.
type Source struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	hash    uint64
	watcher *watcher.Watcher
}

// NewSource builds a Source for path. A zero debounce uses a short default.
func NewSource(path string, debounce time.Duration, logger *slog.Logger) *Source {
	if debounce <= 0 {
		debounce = defaultSourceDebounce
	}
	return &Source{path: path, debounce: debounce, logger: logger}
}

// Path returns the watched config path.
func (s *Source) Path() string {
	return s.path
}

// Load reads the current config and remembers its hash.
func (s *Source) Load() ([]FeedConfig, error) {
	list, hash, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.hash = hash
	s.mu.Unlock()
	return list, nil
}

// Start watches the config file. onChange receives every new valid feed set; onReject
// receives read and validation errors, after which the previous set stays in effect.
func (s *Source) Start(onChange func([]FeedConfig), onReject func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}
	w, err := watcher.New(filepath.Dir(s.path), watcher.Options{Debounce: s.debounce, Logger: s.logger})
	if err != nil {
		return err
	}
	if err := w.Watch(filepath.Base(s.path), func() { s.check(onChange, onReject) }); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	return nil
}

// Close stops watching. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

func (s *Source) check(onChange func([]FeedConfig), onReject func(error)) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		report(onReject, fmt.Errorf("read feeds config: %w", err))
		return
	}
	hash := Hash(data)

	s.mu.Lock()
	same := hash == s.hash
	s.mu.Unlock()
	if same {
		logging.Info(s.logger, "feeds config unchanged", logging.FieldPath, s.path)
		return
	}

	list, err := Parse(data)
	if err != nil {
		report(onReject, err)
		return
	}

	s.mu.Lock()
	s.hash = hash
	s.mu.Unlock()
	if onChange != nil {
		onChange(list)
	}
}

func report(onReject func(error), err error) {
	if onReject != nil {
		onReject(err)
	}
}
