package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// DefinitionLoader fetches quiz definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (domain.Quiz, error)
}

// DefinitionRepository caches whole definitions as JSON in Redis and
// falls back to a loader on cache miss. The full definition is cached
// (not a per-question digest) because scoring needs every option's
// contribution list.
type DefinitionRepository struct {
	client *redis.Client
	loader DefinitionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewDefinitionRepository(client *redis.Client, loader DefinitionLoader, ttl time.Duration) *DefinitionRepository {
	return &DefinitionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *DefinitionRepository) GetDefinition(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := r.key(quizID)

	if quiz, ok := r.fromCache(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.fromCache(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if raw, err := json.Marshal(quiz); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *DefinitionRepository) fromCache(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *DefinitionRepository) key(quizID string) string {
	return "quiz:definition:" + quizID
}

func (r *DefinitionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
