package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSnapshotStore(newClient(mr), 24*time.Hour)

	snap := domain.Snapshot{
		QuizID: "quiz-1",
		State: domain.QuizState{
			QuizID:    "quiz-1",
			AttemptID: "a1",
			Current:   1,
			Answers: map[string]domain.Answer{
				"q1": {Value: "yes", Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
			},
			StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Order:   []int{1, 0, 2},
		SavedAt: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz:snapshot:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}

	loaded, found, err := store.Load(ctx, "quiz-1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if loaded.State.AttemptID != "a1" || loaded.State.Answers["q1"].Value != "yes" {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}
	if len(loaded.Order) != 3 || loaded.Order[0] != 1 {
		t.Fatalf("question order must survive the round trip, got %v", loaded.Order)
	}

	if err := store.Clear(ctx, "quiz-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("quiz:snapshot:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSnapshotStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSnapshotStore(newClient(mr), time.Minute)

	if err := store.Save(ctx, domain.Snapshot{QuizID: "quiz-1", SavedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, found, err := store.Load(ctx, "quiz-1"); err != nil || found {
		t.Fatalf("expected snapshot expired, found=%v err=%v", found, err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
