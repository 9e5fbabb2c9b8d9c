// Package sequence hands out strictly increasing ids.
package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic, never reused ids. It is safe
// for concurrent use, so several market workers can share one.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first id is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last id handed out.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
