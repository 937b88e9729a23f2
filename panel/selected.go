package panel

import (
	"sync"

	"rekit/process"
)

// SelectedPID shares the process chosen in one view with the others.
type SelectedPID struct {
	mu       sync.RWMutex
	provider func() process.ProcessID
}

// SetProvider installs the function reporting the current selection. A nil
// provider clears it.
func (s *SelectedPID) SetProvider(fn func() process.ProcessID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = fn
}

// Get returns the selected pid, or fallback when no provider is installed or
// nothing is selected.
func (s *SelectedPID) Get(fallback process.ProcessID) process.ProcessID {
	s.mu.RLock()
	fn := s.provider
	s.mu.RUnlock()

	if fn == nil {
		return fallback
	}
	if pid := fn(); pid != 0 {
		return pid
	}
	return fallback
}
