package ipc

import "sync"

// SharedHandle guards a Handle with a mutex for shell mode, where the
// top-level visitation loop and the per-module diagnostics queries re-enter
// the same child from different call paths. Exactly one holder exchanges
// with the child at a time.
type SharedHandle struct {
	mu sync.Mutex
	h  *Handle
}

// NewShared wraps h for shared use.
func NewShared(h *Handle) *SharedHandle {
	return &SharedHandle{h: h}
}

// Acquire locks the handle and returns it. The caller must call Release when
// its exchange is complete.
func (s *SharedHandle) Acquire() *Handle {
	s.mu.Lock()

	return s.h
}

// Release unlocks the handle.
func (s *SharedHandle) Release() {
	s.mu.Unlock()
}

// Close closes the underlying handle.
func (s *SharedHandle) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.h.Close()
}
