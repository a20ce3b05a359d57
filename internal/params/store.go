package params

import (
	"sync"
	"sync/atomic"
)

// Store publishes Params snapshots. Readers never block: Load is a single
// atomic pointer read. Writers serialise among themselves and swap in a
// fresh copy, so a reader sees either the old or the new set, never a mix.
type Store struct {
	cur atomic.Pointer[Params]
	mu  sync.Mutex // writers only

	// maxLinStiffness bounds LinGain·LinStiffness on every update; zero
	// disables the clamp.
	maxLinStiffness float64
}

// NewStore validates p and returns a store holding it.
func NewStore(p Params) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.cur.Store(&p)
	return s, nil
}

// SetStiffnessLimit installs the device stiffness bound and re-clamps the
// current snapshot.
func (s *Store) SetStiffnessLimit(maxLinStiffness float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxLinStiffness = maxLinStiffness
	next := s.cur.Load().ClampLinGain(maxLinStiffness)
	s.cur.Store(&next)
}

// Load returns the current snapshot by value.
func (s *Store) Load() Params {
	return *s.cur.Load()
}

// Update applies fn to a copy of the current snapshot and publishes it if
// the result validates. The previous snapshot stays in place on error.
func (s *Store) Update(fn func(*Params)) (Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cur.Load()
	fn(&next)
	next = next.ClampLinGain(s.maxLinStiffness)
	if err := next.Validate(); err != nil {
		return *s.cur.Load(), err
	}
	s.cur.Store(&next)
	return next, nil
}

// Replace publishes p as a whole.
func (s *Store) Replace(p Params) error {
	_, err := s.Update(func(cur *Params) { *cur = p })
	return err
}

// Apply executes an operator command against the store.
func (s *Store) Apply(c Command) (Params, error) {
	return s.Update(c.apply)
}
