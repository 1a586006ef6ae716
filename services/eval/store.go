package eval

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store defines the interface for run storage.
type Store interface {
	// CreateRun records a new evaluation run.
	CreateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID. Returns nil when not found.
	GetRun(ctx context.Context, id string) (*Run, error)

	// UpdateRun updates a run.
	UpdateRun(ctx context.Context, run *Run) error

	// ListRuns returns runs matching the query, newest first, plus the
	// total match count before pagination.
	ListRuns(ctx context.Context, query ListRunsQuery) ([]*Run, int, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates a new in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*Run),
	}
}

// CreateRun records a new evaluation run.
func (s *MemoryStore) CreateRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run already exists: %s", run.ID)
	}

	s.runs[run.ID] = run.clone()
	return nil
}

// GetRun retrieves a run by ID.
func (s *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}

	// Deep copy: callers must not be able to reach stored state through
	// the report or its score columns.
	return run.clone(), nil
}

// UpdateRun updates a run.
func (s *MemoryStore) UpdateRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("run not found: %s", run.ID)
	}

	s.runs[run.ID] = run.clone()
	return nil
}

// ListRuns returns runs matching the query.
func (s *MemoryStore) ListRuns(ctx context.Context, query ListRunsQuery) ([]*Run, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Run
	for _, run := range s.runs {
		if query.Status != RunStatusUnspecified && run.Status != query.Status {
			continue
		}
		results = append(results, run.clone())
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	totalCount := len(results)

	if query.Offset > 0 {
		if query.Offset >= len(results) {
			results = nil
		} else {
			results = results[query.Offset:]
		}
	}

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}

	return results, totalCount, nil
}
