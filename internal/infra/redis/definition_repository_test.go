package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/infra/memory"
)

func TestDefinitionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		DefinitionLoader: memory.NewStaticDefinitionLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewDefinitionRepository(newClient(mr), loader, time.Minute)

	quiz, err := repo.GetDefinition(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(quiz.Questions) != 1 || len(quiz.Questions[0].Options) != 2 {
		t.Fatalf("definition must survive caching intact, got %+v", quiz)
	}

	// Second call should hit the redis cache with full option detail.
	cached, err := repo.GetDefinition(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get definition 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Questions[0].Options[0].War != "abandonment" {
		t.Fatalf("score tags must survive the cache, got %+v", cached.Questions[0].Options[0])
	}
}

type countingLoader struct {
	memory.DefinitionLoader
	calls int
}

func (l *countingLoader) LoadDefinition(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.DefinitionLoader.LoadDefinition(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:   "q1",
				Type: domain.SingleChoice,
				Text: "How do you usually respond to conflict?",
				Options: []domain.ChoiceOption{
					{Value: "a", Text: "Withdraw", War: "abandonment"},
					{Value: "b", Text: "Confront", War: "exposure"},
				},
			},
		},
		Scoring: domain.ScoringConfig{Type: domain.HighestWins},
	}
}
