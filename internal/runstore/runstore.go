// Package runstore keeps recent simulation runs in memory for the API
// server, newest first. It is the fallback when no database is configured
// and the fast path when there is one.
package runstore

import (
	"sync"
	"time"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
)

// Run lifecycle states.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Record is one run as exposed by the API.
type Record struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Status    string                   `json:"status"`
	Error     string                   `json:"error,omitempty"`
	Summary   *aggregate.AnnualSummary `json:"summary,omitempty"`
}

// Store holds the most recent runs, newest first, capped at a fixed limit.
// All methods copy records in and out, so callers never share mutable
// state with the store.
type Store struct {
	mu    sync.RWMutex
	limit int
	runs  []Record
}

func New(limit int) *Store {
	return &Store{limit: limit}
}

// Add records a new run at the head of the list, evicting the oldest entry
// beyond the limit.
func (s *Store) Add(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append([]Record{rec}, s.runs...)
	if len(s.runs) > s.limit {
		s.runs = s.runs[:s.limit]
	}
}

// Complete transitions a run to its final state. It reports whether the
// run was still in the store.
func (s *Store) Complete(id, status, errMsg string, summary *aggregate.AnnualSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == id {
			s.runs[i].Status = status
			s.runs[i].Error = errMsg
			s.runs[i].Summary = summary
			return true
		}
	}
	return false
}

// Get returns one run by ID.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.runs {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Recent returns all held runs, newest first.
func (s *Store) Recent() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.runs))
	copy(out, s.runs)
	return out
}

// Len returns the number of held runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
