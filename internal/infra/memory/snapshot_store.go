package memory

import (
	"context"
	"sync"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// SnapshotStore is an in-memory implementation of app.SnapshotStore,
// useful for tests and single-process embedding.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]domain.Snapshot)}
}

func (s *SnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.QuizID] = snap
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, quizID string) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[quizID]
	return snap, ok, nil
}

func (s *SnapshotStore) Clear(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, quizID)
	return nil
}
