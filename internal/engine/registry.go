package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// UnsupportedAlgorithmError is returned when no runner is registered for an algorithm.
type UnsupportedAlgorithmError struct {
	Algorithm string
	Available []string
}

func (e *UnsupportedAlgorithmError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown algorithm %q: no runners registered", e.Algorithm)
	}
	return fmt.Sprintf("unknown algorithm %q (available: %v)", e.Algorithm, e.Available)
}

// Registry maps algorithm names and their aliases to runners. Names are
// case-insensitive.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
	aliases map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
		aliases: make(map[string]string),
	}
}

// Register adds a runner under its Name and the given aliases. A later
// registration with the same name replaces the earlier one.
func (r *Registry) Register(runner Runner, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(runner.Name())
	r.runners[name] = runner
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
}

func (r *Registry) Lookup(algorithm string) (Runner, error) {
	key := strings.ToLower(algorithm)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.aliases[key]; ok {
		key = name
	}
	runner, ok := r.runners[key]
	if !ok {
		return nil, &UnsupportedAlgorithmError{Algorithm: algorithm, Available: r.available()}
	}
	return runner, nil
}

// Available returns the sorted canonical algorithm names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available()
}

func (r *Registry) available() []string {
	names := lo.Keys(r.runners)
	slices.Sort(names)
	return names
}

// Aliases returns the aliases registered for a canonical name, sorted.
func (r *Registry) Aliases(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := lo.Keys(lo.PickByValues(r.aliases, []string{strings.ToLower(name)}))
	slices.Sort(aliases)
	return aliases
}
