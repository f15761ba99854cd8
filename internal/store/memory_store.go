package store

import (
	"sync"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
)

// MemoryStore keeps the last parse of each feed file, ordered by registration.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	games map[string][]games.Game
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string][]games.Game),
	}
}

// Register appends file to the iteration order with an empty entry.
// Registering an existing file keeps its position and contents.
func (s *MemoryStore) Register(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[file]; ok {
		return
	}
	s.order = append(s.order, file)
	s.games[file] = []games.Game{}
}

// SetGames replaces the entry for file wholesale. Unregistered files are appended.
func (s *MemoryStore) SetGames(file string, list []games.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[file]; !ok {
		s.order = append(s.order, file)
	}
	if list == nil {
		list = []games.Game{}
	}
	s.games[file] = list
}

// GamesFor returns the entry for one file.
func (s *MemoryStore) GamesFor(file string) ([]games.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[file]
	if !ok {
		return nil, false
	}
	out := make([]games.Game, len(g))
	copy(out, g)
	return out, true
}

// ListGames returns every entry flattened in registration order.
func (s *MemoryStore) ListGames() []games.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([][]games.Game, 0, len(s.order))
	for _, f := range s.order {
		groups = append(groups, s.games[f])
	}
	return games.Flatten(groups...)
}

// Files returns the registered files in order.
func (s *MemoryStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Clear drops every entry and registration.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.games = make(map[string][]games.Game)
}
