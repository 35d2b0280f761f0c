// Package speech provides text-to-speech backends for playback.
package speech

import "sync"

// Speaker reads text aloud.
//
// onComplete is invoked exactly once per Speak call: when speaking ends, or
// immediately from Stop if the utterance is preempted. Calling Speak while an
// utterance is in flight preempts it as if Stop had been called.
type Speaker interface {
	Speak(text string, onComplete func())
	Stop()
}

// utterance is one in-flight Speak call.
type utterance struct {
	once       sync.Once
	onComplete func()

	mu     sync.Mutex
	cancel func()
}

func (u *utterance) setCancel(cancel func()) {
	u.mu.Lock()
	u.cancel = cancel
	u.mu.Unlock()
}

// finish runs onComplete unless it already ran.
func (u *utterance) finish() {
	u.once.Do(func() {
		if u.onComplete != nil {
			u.onComplete()
		}
	})
}

// slot holds the utterance currently in flight.
type slot struct {
	mu  sync.Mutex
	cur *utterance
}

// swap installs u as the current utterance and returns the previous one.
func (s *slot) swap(u *utterance) *utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = u
	return prev
}

// release clears u if it is still current.
func (s *slot) release(u *utterance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == u {
		s.cur = nil
	}
}

// preempt cancels and completes u.
func preempt(u *utterance) {
	if u == nil {
		return
	}
	u.mu.Lock()
	cancel := u.cancel
	u.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	u.finish()
}
