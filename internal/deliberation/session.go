package deliberation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boundou-sig/deliblist/internal/types"
)

// Session owns the last processed result. A new run replaces the previous
// one as a whole; a failed run leaves the session empty so that an old list
// is never shown as the outcome of a new upload.
//
// The mutex only protects the pointer swap; results are never mutated once
// stored.
type Session struct {
	mu       sync.RWMutex
	current  *Result
	loadedAt time.Time
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Load processes a sheet and stores the result. On error the session is
// cleared and the error returned.
func (s *Session) Load(sheet *types.Sheet, t types.SubmissionType, opts Options) (*Result, error) {
	result, err := Process(sheet, t, opts)
	if err != nil {
		s.Clear()
		return nil, err
	}
	s.Replace(result)
	return result, nil
}

// Replace stores result, assigning a run id when it has none.
func (s *Session) Replace(result *Result) {
	if result != nil && result.RunID == "" {
		result.RunID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = result
	s.loadedAt = time.Now()
}

// Clear drops the stored result.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.loadedAt = time.Time{}
}

// Current returns the stored result.
func (s *Session) Current() (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// LoadedAt is the time of the last Replace, zero when empty.
func (s *Session) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
