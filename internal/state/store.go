// Package state holds the user's in-progress compression configuration.
package state

import (
	"slices"
	"sync"

	v1 "github.com/presskit/presskit/apis/v1"
	"github.com/samber/lo"
)

// Configuration is a point-in-time copy of the store's fields.
type Configuration struct {
	Algorithm  *string
	Flags      []string
	InputPath  string
	OutputPath string
}

// Request converts the configuration into the start_compression payload.
func (c Configuration) Request() v1.CompressionRequest {
	return v1.CompressionRequest{
		Algorithm:  c.Algorithm,
		Flags:      c.Flags,
		InputPath:  c.InputPath,
		OutputPath: c.OutputPath,
	}
}

// Observer is called with the new configuration after every mutation. When
// setters run concurrently, an observer may be called from the goroutine of
// whichever setter is delivering at the time.
type Observer func(Configuration)

// Store is the observable compression configuration. One store is created per
// UI session and passed to whatever needs it. The zero value is not usable, use New.
type Store struct {
	mu        sync.RWMutex
	cfg       Configuration
	observers map[uint64]Observer
	nextID    uint64

	// notifyMu guards pending and notifying. Snapshots are delivered one at a
	// time, in the order the mutations happened.
	notifyMu  sync.Mutex
	pending   []Configuration
	notifying bool
}

func New() *Store {
	return &Store{
		cfg:       defaults(),
		observers: make(map[uint64]Observer),
	}
}

func defaults() Configuration {
	return Configuration{
		Algorithm: nil,
		Flags:     []string{},
	}
}

// SetAlgorithm selects the algorithm. Flags and paths chosen for the previous
// algorithm are no longer valid, so they are cleared as well.
func (s *Store) SetAlgorithm(algorithm *string) {
	s.update(func(cfg *Configuration) {
		cfg.Algorithm = cloneString(algorithm)
		cfg.Flags = []string{}
		cfg.InputPath = ""
		cfg.OutputPath = ""
	})
}

// SetFlags replaces the flags wholesale.
func (s *Store) SetFlags(flags []string) {
	s.update(func(cfg *Configuration) {
		cfg.Flags = cloneFlags(flags)
	})
}

// SetPaths replaces both paths together.
func (s *Store) SetPaths(input, output string) {
	s.update(func(cfg *Configuration) {
		cfg.InputPath = input
		cfg.OutputPath = output
	})
}

// Reset restores the defaults. Subscribers stay attached.
func (s *Store) Reset() {
	s.update(func(cfg *Configuration) {
		*cfg = defaults()
	})
}

func (s *Store) Algorithm() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneString(s.cfg.Algorithm)
}

func (s *Store) Flags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFlags(s.cfg.Flags)
}

func (s *Store) InputPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.InputPath
}

func (s *Store) OutputPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.OutputPath
}

// Snapshot returns a deep copy of all four fields read under one lock.
func (s *Store) Snapshot() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
		})
	}
}

// update applies fn under the write lock and queues the resulting snapshot.
// Observers run outside the lock, so they may read or mutate the store. A
// mutation made from an observer is delivered after the current snapshot has
// reached every observer, which keeps each observer's last view equal to the
// store.
func (s *Store) update(fn func(*Configuration)) {
	s.mu.Lock()
	fn(&s.cfg)
	s.notifyMu.Lock()
	s.pending = append(s.pending, s.snapshot())
	if s.notifying {
		s.notifyMu.Unlock()
		s.mu.Unlock()
		return
	}
	s.notifying = true
	s.notifyMu.Unlock()
	s.mu.Unlock()

	s.notifyMu.Lock()
	for len(s.pending) > 0 {
		cfg := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()

		for _, observer := range s.subscribed() {
			observer(cloneConfiguration(cfg))
		}

		s.notifyMu.Lock()
	}
	s.notifying = false
	s.notifyMu.Unlock()
}

// subscribed returns the observers in subscription order.
func (s *Store) subscribed() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := lo.Keys(s.observers)
	slices.Sort(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	return observers
}

func (s *Store) snapshot() Configuration {
	return cloneConfiguration(s.cfg)
}

func cloneConfiguration(cfg Configuration) Configuration {
	return Configuration{
		Algorithm:  cloneString(cfg.Algorithm),
		Flags:      cloneFlags(cfg.Flags),
		InputPath:  cfg.InputPath,
		OutputPath: cfg.OutputPath,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFlags(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return slices.Clone(flags)
}
