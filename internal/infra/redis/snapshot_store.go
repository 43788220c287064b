package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// SnapshotStore keeps serialized attempt snapshots in Redis, one key per
// quiz. The key TTL matches the staleness window so abandoned attempts
// expire server-side without a cleanup job.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snap.QuizID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, quizID string) (domain.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key(quizID)).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *SnapshotStore) Clear(ctx context.Context, quizID string) error {
	if err := s.client.Del(ctx, s.key(quizID)).Err(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) key(quizID string) string {
	return "quiz:snapshot:" + quizID
}
