package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
)

// MemoryStore keeps entities in process. It backs tests and the
// `store.driver: memory` configuration.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[string]modal.Task
	actions map[string]modal.Action
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[string]modal.Task),
		actions: make(map[string]modal.Action),
	}
}

func (s *MemoryStore) GetAction(ctx context.Context, actionID string) (modal.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.actions[actionID]
	if !ok {
		return modal.Action{}, fmt.Errorf("%w: action %q", lifecycle.ErrNotFound, actionID)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) GetTask(ctx context.Context, taskID string) (modal.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return modal.Task{}, fmt.Errorf("%w: task %q", lifecycle.ErrNotFound, taskID)
	}
	return t, nil
}

func (s *MemoryStore) ListActions(ctx context.Context, filter ActionFilter) ([]modal.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]modal.Action, 0)
	for _, a := range s.actions {
		if filter.match(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, t modal.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("%w: task %q already exists", lifecycle.ErrStoreConflict, t.ID)
	}
	t.Version = 1
	s.tasks[t.ID] = t
	return nil
}

func (s *MemoryStore) CreateAction(ctx context.Context, a modal.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actions[a.ID]; ok {
		return fmt.Errorf("%w: action %q already exists", lifecycle.ErrStoreConflict, a.ID)
	}
	if _, ok := s.tasks[a.TaskID]; !ok {
		return fmt.Errorf("%w: task %q", lifecycle.ErrNotFound, a.TaskID)
	}
	a = a.Clone()
	a.Version = 1
	s.actions[a.ID] = a
	return nil
}

func (s *MemoryStore) PutTask(ctx context.Context, t modal.Task) (modal.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTask(t); err != nil {
		return modal.Task{}, err
	}
	t.Version++
	s.tasks[t.ID] = t
	return t, nil
}

func (s *MemoryStore) PutAction(ctx context.Context, a modal.Action) (modal.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAction(a); err != nil {
		return modal.Action{}, err
	}
	a = a.Clone()
	a.Version++
	s.actions[a.ID] = a
	return a.Clone(), nil
}

func (s *MemoryStore) PutActionAndTask(ctx context.Context, a modal.Action, t modal.Task) (modal.Action, modal.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAction(a); err != nil {
		return modal.Action{}, modal.Task{}, err
	}
	if err := s.checkTask(t); err != nil {
		return modal.Action{}, modal.Task{}, err
	}
	a = a.Clone()
	a.Version++
	t.Version++
	s.actions[a.ID] = a
	s.tasks[t.ID] = t
	return a.Clone(), t, nil
}

func (s *MemoryStore) checkAction(a modal.Action) error {
	cur, ok := s.actions[a.ID]
	if !ok {
		return fmt.Errorf("%w: action %q", lifecycle.ErrNotFound, a.ID)
	}
	if cur.Version != a.Version {
		return fmt.Errorf("%w: action %q at version %d, write based on %d", lifecycle.ErrStoreConflict, a.ID, cur.Version, a.Version)
	}
	return nil
}

func (s *MemoryStore) checkTask(t modal.Task) error {
	cur, ok := s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("%w: task %q", lifecycle.ErrNotFound, t.ID)
	}
	if cur.Version != t.Version {
		return fmt.Errorf("%w: task %q at version %d, write based on %d", lifecycle.ErrStoreConflict, t.ID, cur.Version, t.Version)
	}
	return nil
}
