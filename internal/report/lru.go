package report

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// LRUStore keeps the most recent run records in memory. Saves write
// through to an optional backing Store, and misses fall back to it. With a
// nil backing store, evicted runs are gone.
type LRUStore struct {
	back Store

	mu    sync.Mutex
	cap   int
	order *list.List               // front is most recently used
	index map[string]*list.Element // run ID -> element holding *RunResult
}

// NewLRUStore returns an LRUStore holding up to cap records in memory.
// A cap below 1 is treated as 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	return &LRUStore{
		back:  back,
		cap:   max(cap, 1),
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

func (s *LRUStore) Save(ctx context.Context, result *RunResult) error {
	if err := validID(result.ID); err != nil {
		return err
	}
	s.touch(result)
	if s.back == nil {
		return nil
	}
	return s.back.Save(ctx, result)
}

func (s *LRUStore) Load(ctx context.Context, runID string) (*RunResult, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	if r, ok := s.cached(runID); ok {
		return r, nil
	}
	if s.back == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}

	result, err := s.back.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	s.touch(result)
	return result, nil
}

// Len returns the number of records held in memory.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *LRUStore) cached(runID string) (*RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.index[runID]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*RunResult), true
}

// touch inserts or refreshes result and evicts the least recently used
// record when over capacity.
func (s *LRUStore) touch(result *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[result.ID]; ok {
		el.Value = result
		s.order.MoveToFront(el)
		return
	}
	s.index[result.ID] = s.order.PushFront(result)

	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(*RunResult).ID)
	}
}
