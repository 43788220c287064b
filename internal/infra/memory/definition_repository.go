package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// DefinitionLoader fetches quiz definitions from a backing store.
type DefinitionLoader interface {
	LoadDefinition(ctx context.Context, quizID string) (domain.Quiz, error)
}

// DefinitionRepository caches definitions with TTL to avoid repeated
// backing-store hits while attempts run.
type DefinitionRepository struct {
	loader DefinitionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewDefinitionRepository(loader DefinitionLoader, ttl time.Duration) *DefinitionRepository {
	return &DefinitionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (r *DefinitionRepository) GetDefinition(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.loader.LoadDefinition(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedDefinition{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *DefinitionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticDefinitionLoader serves definitions from an in-memory map
// (useful for tests and demos).
type StaticDefinitionLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticDefinitionLoader(quizzes map[string]domain.Quiz) *StaticDefinitionLoader {
	return &StaticDefinitionLoader{quizzes: quizzes}
}

func (l *StaticDefinitionLoader) LoadDefinition(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
