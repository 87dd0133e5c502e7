// Package sequence hands out the per-pair command sequence. Every
// accepted command gets exactly one number and numbers never repeat
// within a pair's lifetime.
package sequence

import "sync/atomic"

type Sequencer struct {
	counter atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.counter.Store(start)
	return s
}

// Next returns the next sequence number, starting at start+1.
func (s *Sequencer) Next() uint64 {
	return s.counter.Add(1)
}

// Current returns the last number handed out.
func (s *Sequencer) Current() uint64 {
	return s.counter.Load()
}

// Reset rewinds the counter, used after replaying a snapshot and log.
func (s *Sequencer) Reset(to uint64) {
	s.counter.Store(to)
}
