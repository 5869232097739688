package keyboard

import "sync"

// SimulatedSampler is a Sampler driven by Press and Release calls, for tests
// and headless runs.
type SimulatedSampler struct {
	mu   sync.Mutex
	down [NumKeys]bool
}

// NewSimulatedSampler returns a sampler with every key up.
func NewSimulatedSampler() *SimulatedSampler {
	return &SimulatedSampler{}
}

// Press marks keys as held.
func (s *SimulatedSampler) Press(keys ...Key) {
	s.set(true, keys)
}

// Release marks keys as not held.
func (s *SimulatedSampler) Release(keys ...Key) {
	s.set(false, keys)
}

func (s *SimulatedSampler) set(down bool, keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if k.Valid() {
			s.down[k] = down
		}
	}
}

// IsDown implements Sampler.
func (s *SimulatedSampler) IsDown(k Key) bool {
	if !k.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down[k]
}

// Available implements Sampler.
func (s *SimulatedSampler) Available() (bool, string) {
	return true, "simulated sampler (for testing)"
}
