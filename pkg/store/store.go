package store

import (
	"sync"

	"github.com/sowandreap/kalaha/pkg/log"
	"github.com/sowandreap/kalaha/pkg/types"
)

// GameStateStore holds the single mirror of the server's authoritative
// game state. The only write path is full snapshot replacement, so
// fields that must stay mutually consistent (turn, winner) can never
// drift apart. Stores are constructed explicitly and passed where
// needed; there is no ambient package-level instance.
type GameStateStore struct {
	mu          sync.Mutex
	gameData    *types.GameData
	version     uint64
	subscribers []func(*types.GameData, uint64)
}

func NewGameStateStore() *GameStateStore {
	return &GameStateStore{}
}

// Current returns a copy of the latest snapshot together with the store
// version it was read at. The boolean is false until the first Replace.
func (s *GameStateStore) Current() (*types.GameData, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameData == nil {
		return nil, s.version, false
	}
	return s.gameData.Copy(), s.version, true
}

// Version returns the current store version. The version increments on
// every accepted replacement, letting callers tag a mutating request
// with the state it was issued against.
func (s *GameStateStore) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Replace installs a new snapshot unconditionally and returns the new
// version. Subscribers are notified once per accepted replacement.
func (s *GameStateStore) Replace(gameData *types.GameData) uint64 {
	s.mu.Lock()
	s.gameData = gameData.Copy()
	s.version++
	version := s.version
	notify := s.notification()
	s.mu.Unlock()

	notify()
	return version
}

// ReplaceIf installs a new snapshot only when the store is still at the
// expected version. It returns false when the store has moved past the
// state the caller's request was issued against, in which case the
// response is stale and must not overwrite fresher state.
func (s *GameStateStore) ReplaceIf(expected uint64, gameData *types.GameData) (uint64, bool) {
	s.mu.Lock()
	if s.version != expected {
		version := s.version
		s.mu.Unlock()
		log.Warn("Rejecting stale snapshot for version %d, store is at %d", expected, version)
		return version, false
	}
	s.gameData = gameData.Copy()
	s.version++
	version := s.version
	notify := s.notification()
	s.mu.Unlock()

	notify()
	return version, true
}

// Subscribe registers a callback invoked after every accepted
// replacement with a copy of the new snapshot and the version it was
// installed at. Callbacks run outside the store lock and may call back
// into the store.
func (s *GameStateStore) Subscribe(fn func(*types.GameData, uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// notification captures the current snapshot and subscriber list under
// the lock and returns a closure that delivers outside of it.
func (s *GameStateStore) notification() func() {
	subscribers := make([]func(*types.GameData, uint64), len(s.subscribers))
	copy(subscribers, s.subscribers)
	gameData := s.gameData
	version := s.version

	return func() {
		for _, fn := range subscribers {
			fn(gameData.Copy(), version)
		}
	}
}
