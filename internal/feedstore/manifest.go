package feedstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Manifest records when each feed file was last written.
type Manifest struct {
	Version     int                 `json:"version"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Files       map[string]FileMeta `json:"files"`
}

type FileMeta struct {
	LastWritten time.Time `json:"lastWritten"`
	Bytes       int       `json:"bytes"`
}

func defaultManifest() Manifest {
	return Manifest{
		Version: 1,
		Files:   map[string]FileMeta{},
	}
}

// Manifest returns the current manifest, or an empty one when none exists.
func (s *Store) Manifest() (Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := readManifest(filepath.Join(s.dir, ManifestFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return m, err
	}
	return m, nil
}

func (s *Store) recordWrite(file string, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A corrupt manifest is rebuilt from scratch.
	m, _ := readManifest(filepath.Join(s.dir, ManifestFile))
	now := s.now().UTC()
	m.Files[file] = FileMeta{LastWritten: now, Bytes: size}
	m.GeneratedAt = now

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.dir, ManifestFile, data)
}

func readManifest(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return defaultManifest(), err
	}
	defer f.Close()
	var m Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return defaultManifest(), err
	}
	if m.Files == nil {
		m.Files = map[string]FileMeta{}
	}
	return m, nil
}
