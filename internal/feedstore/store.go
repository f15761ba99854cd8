// Package feedstore keeps one raw JSON file per feed in a data directory.
//
// Writes go to a temp file in the same directory and are renamed into place, so a
// reader sees either the previous or the new complete content.
package feedstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
)

// ManifestFile is the reserved name of the manifest inside the data directory.
const ManifestFile = "manifest.json"

var (
	// ErrNotFound is returned when a feed file has not been written yet.
	ErrNotFound = errors.New("feed file not found")
	// ErrInvalidName rejects names that would escape the data directory.
	ErrInvalidName = errors.New("invalid feed file name")
)

// Store reads and writes feed files under one directory.
type Store struct {
	dir    string
	logger *slog.Logger

	// mu guards manifest read-modify-write across pollers.
	mu  sync.Mutex
	now func() time.Time
}

// New creates dir if missing and returns a Store rooted there.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logging.Component(logger, "feedstore"), now: time.Now}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path for file.
func (s *Store) Path(file string) string {
	return filepath.Join(s.dir, file)
}

// Write atomically replaces file with data and records it in the manifest. The data
// directory is recreated if it has been removed. Once the file is in place a manifest
// failure is only logged.
func (s *Store) Write(file string, data []byte) error {
	if err := checkName(file); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := WriteFileAtomic(s.dir, file, data); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := s.recordWrite(file, len(data)); err != nil {
		logging.Warn(s.logger, "manifest update failed", logging.FieldFile, file, "error", err)
	}
	return nil
}

// Read returns the last written content of file.
func (s *Store) Read(file string) ([]byte, error) {
	if err := checkName(file); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", file, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

// Exists reports whether file has been written.
func (s *Store) Exists(file string) bool {
	if checkName(file) != nil {
		return false
	}
	_, err := os.Stat(s.Path(file))
	return err == nil
}

func checkName(file string) error {
	if file == "" || file == "." || file == ".." || file == ManifestFile || strings.ContainsAny(file, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, file)
	}
	return nil
}

// WriteFileAtomic replaces dir/name with data via a temp file and rename.
// The temp name is unique so concurrent writers never share one.
func WriteFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
