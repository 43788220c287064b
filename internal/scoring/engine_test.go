package scoring

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

func stateWith(answers map[string]any) domain.QuizState {
	state := domain.QuizState{
		QuizID:    "quiz-1",
		AttemptID: "attempt-1",
		Answers:   make(map[string]domain.Answer, len(answers)),
		StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	completed := state.StartedAt.Add(5 * time.Minute)
	state.CompletedAt = &completed
	for id, v := range answers {
		state.Answers[id] = domain.Answer{Value: v, Timestamp: state.StartedAt}
	}
	return state
}

func categoryConfigs(names ...string) []domain.CategoryConfig {
	out := make([]domain.CategoryConfig, len(names))
	for i, name := range names {
		out[i] = domain.CategoryConfig{Name: name}
	}
	return out
}

// scoreQuestions builds one single-choice question per entry whose sole
// option credits the given score to the given category.
func scoreQuestions(entries map[string]float64, order []string) ([]domain.Question, map[string]any) {
	questions := make([]domain.Question, 0, len(order))
	answers := make(map[string]any, len(order))
	for _, category := range order {
		id := "q" + category
		questions = append(questions, domain.Question{
			ID:   id,
			Type: domain.SingleChoice,
			Text: "question " + category,
			Options: []domain.ChoiceOption{
				{Value: "a", Text: "option a", Scores: []domain.ScoreContribution{
					{Category: category, Value: entries[category], Weight: 1},
				}},
			},
		})
		answers[id] = "a"
	}
	return questions, answers
}

func TestCalculateResultsAccumulation(t *testing.T) {
	questions := []domain.Question{
		{
			ID:   "q1",
			Type: domain.SingleChoice,
			Text: "pick one",
			Options: []domain.ChoiceOption{
				{Value: "a", Text: "A", Scores: []domain.ScoreContribution{
					{Category: "abandonment", Value: 2, Weight: 2},
				}, War: "exposure"},
			},
		},
		{
			ID:   "q2",
			Type: domain.MultiChoice,
			Text: "pick many",
			Options: []domain.ChoiceOption{
				{Value: "x", Scores: []domain.ScoreContribution{{Category: "abandonment", Value: 1}}},
				{Value: "y", Scores: []domain.ScoreContribution{{Category: "exposure", Value: 3}}},
			},
		},
		{ID: "q3", Type: domain.Binary, Text: "yes/no", Category: "entrapment"},
		{ID: "q4", Type: domain.Likert, Text: "agree?", Category: "erasure", ScalePoints: 5, ReverseCoded: true},
		{ID: "q5", Type: domain.Slider, Text: "how much", Category: "abandonment", Min: 0, Max: 10},
	}
	state := stateWith(map[string]any{
		"q1":      "a",
		"q2":      []any{"x", "y"},
		"q3":      float64(1),
		"q4":      float64(2), // reverse coded on 5 points -> 4
		"q5":      float64(3),
		"ghost-q": "ignored", // no such question; must be skipped
	})
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure", "entrapment", "erasure"),
	}

	result := CalculateResults(cfg, questions, state)

	want := map[string]float64{
		"abandonment": 2*2 + 1 + 3, // q1 weighted + q2 option x + q5 slider
		"exposure":    1 + 3,       // q1 legacy war tag + q2 option y
		"entrapment":  1,           // q3 binary hit
		"erasure":     4,           // q4 reverse-coded likert
	}
	for category, expected := range want {
		if result.Scores[category] != expected {
			t.Fatalf("category %s: expected %v, got %v", category, expected, result.Scores[category])
		}
	}
	if result.Primary.Category != "abandonment" {
		t.Fatalf("expected abandonment primary, got %+v", result.Primary)
	}
	// exposure and erasure tie at 4; config order puts exposure first.
	if result.Secondary == nil || result.Secondary.Category != "exposure" {
		t.Fatalf("expected exposure secondary, got %+v", result.Secondary)
	}
	if len(result.Contributions) != 5 {
		t.Fatalf("expected 5 contribution records, got %d", len(result.Contributions))
	}
}

func TestCalculateResultsDeterministic(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"abandonment": 3, "exposure": 3, "entrapment": 3},
		[]string{"abandonment", "exposure", "entrapment"},
	)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure", "entrapment"),
	}

	first, err := json.Marshal(CalculateResults(cfg, questions, state))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		next, err := json.Marshal(CalculateResults(cfg, questions, state))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(first, next) {
			t.Fatalf("results differ between runs:\n%s\n%s", first, next)
		}
	}
}

func TestTieBreakByConfigOrder(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"exposure": 5, "abandonment": 5},
		[]string{"exposure", "abandonment"},
	)
	state := stateWith(answers)
	// Config lists abandonment first; the tie must resolve to it even
	// though exposure was answered first.
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure"),
	}

	result := CalculateResults(cfg, questions, state)
	if result.Primary.Category != "abandonment" {
		t.Fatalf("tie should resolve by config order, got %+v", result.Primary)
	}
	if result.Key != "abandonment-exposure" {
		t.Fatalf("expected abandonment-exposure key, got %s", result.Key)
	}
}

func TestGroundZeroDetection(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"abandonment": 4, "exposure": 3, "entrapment": 3, "erasure": 1},
		[]string{"abandonment", "exposure", "entrapment", "erasure"},
	)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure", "entrapment", "erasure"),
		GroundZero: &domain.GroundZeroConfig{MinCategories: 3, MinScore: 3, MaxSpread: 2},
	}

	result := CalculateResults(cfg, questions, state)
	// Qualifying set {4,3,3}; erasure below MinScore is excluded; spread 1 <= 2.
	if !result.GroundZero {
		t.Fatalf("expected ground zero, scores %v", result.Scores)
	}
	if result.Key != GroundZeroKey {
		t.Fatalf("ground zero must override the key, got %s", result.Key)
	}
}

func TestGroundZeroTooFewCategories(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"abandonment": 4, "exposure": 3},
		[]string{"abandonment", "exposure"},
	)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure"),
		GroundZero: &domain.GroundZeroConfig{MinCategories: 3, MinScore: 3, MaxSpread: 2},
	}

	if CalculateResults(cfg, questions, state).GroundZero {
		t.Fatalf("two qualifying categories must not trigger ground zero")
	}
}

func TestGroundZeroSpreadTooWide(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"abandonment": 8, "exposure": 3, "entrapment": 3},
		[]string{"abandonment", "exposure", "entrapment"},
	)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure", "entrapment"),
		GroundZero: &domain.GroundZeroConfig{MinCategories: 3, MinScore: 3, MaxSpread: 2},
	}

	if CalculateResults(cfg, questions, state).GroundZero {
		t.Fatalf("spread 5 exceeds max 2, ground zero must be false")
	}
}

func TestCompositeKey(t *testing.T) {
	scores := map[string]float64{
		"abandonment": 5, "exposure": 2, "entrapment": 1, "erasure": 0,
		"flooded": 3, "armored": 1, "phantom": 0, "analyzer": 0,
	}
	order := []string{"abandonment", "exposure", "entrapment", "erasure", "flooded", "armored", "phantom", "analyzer"}
	questions, answers := scoreQuestions(scores, order)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.Composite,
		Categories: categoryConfigs(order...),
	}

	result := CalculateResults(cfg, questions, state)
	if result.Key != "abandonment-flooded" {
		t.Fatalf("expected abandonment-flooded, got %s", result.Key)
	}
}

func TestCompositeFallsBackWithoutMaskScores(t *testing.T) {
	questions, answers := scoreQuestions(
		map[string]float64{"abandonment": 5, "exposure": 2},
		[]string{"abandonment", "exposure"},
	)
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type:       domain.Composite,
		Categories: categoryConfigs("abandonment", "exposure"),
	}

	result := CalculateResults(cfg, questions, state)
	if result.Key != "abandonment-exposure" {
		t.Fatalf("composite without mask scores falls back to highest-wins, got %s", result.Key)
	}
}

func TestEmptyStateYieldsUnknown(t *testing.T) {
	questions, _ := scoreQuestions(map[string]float64{"abandonment": 1}, []string{"abandonment"})
	state := stateWith(nil)
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment", "exposure"),
	}

	result := CalculateResults(cfg, questions, state)
	if result.Key != UnknownCategory {
		t.Fatalf("expected unknown key, got %s", result.Key)
	}
	if result.Primary.Category != UnknownCategory || result.Primary.Score != 0 {
		t.Fatalf("expected zero unknown primary, got %+v", result.Primary)
	}
	if result.Secondary != nil {
		t.Fatalf("unknown result has no secondary, got %+v", result.Secondary)
	}
	if result.Scores["abandonment"] != 0 || result.Scores["exposure"] != 0 {
		t.Fatalf("configured categories must initialize to zero, got %v", result.Scores)
	}
	if len(result.Contributions) != 0 {
		t.Fatalf("no answers means no contribution trail, got %+v", result.Contributions)
	}
}

func TestPercentageAndLevels(t *testing.T) {
	questions, answers := scoreQuestions(map[string]float64{"abandonment": 6}, []string{"abandonment"})
	state := stateWith(answers)
	cfg := domain.ScoringConfig{
		Type: domain.Threshold,
		Categories: []domain.CategoryConfig{
			{
				Name:     "abandonment",
				MaxScore: 12,
				Thresholds: []domain.ScoreThreshold{
					{Min: 0, Max: 4, Level: "low"},
					{Min: 5, Max: 8, Level: "moderate"},
					{Min: 9, Max: 12, Level: "high"},
				},
			},
		},
	}

	result := CalculateResults(cfg, questions, state)
	if result.Primary.Percentage != 50 {
		t.Fatalf("expected 50%%, got %v", result.Primary.Percentage)
	}
	if result.Primary.Level != "moderate" {
		t.Fatalf("expected moderate level, got %q", result.Primary.Level)
	}
}

func TestMaxScoreEstimation(t *testing.T) {
	questions := []domain.Question{
		{
			ID:   "q1",
			Type: domain.SingleChoice,
			Options: []domain.ChoiceOption{
				{Value: "a", Scores: []domain.ScoreContribution{{Category: "abandonment", Value: 2}}},
				{Value: "b", Scores: []domain.ScoreContribution{{Category: "abandonment", Value: 3}}, War: "abandonment"},
			},
		},
		{ID: "q2", Type: domain.Likert, Category: "abandonment", ScalePoints: 5},
	}
	state := stateWith(map[string]any{"q1": "b"})
	cfg := domain.ScoringConfig{
		Type:       domain.HighestWins,
		Categories: categoryConfigs("abandonment"),
	}

	result := CalculateResults(cfg, questions, state)
	// Estimated max: 2 + 3 + 1 (legacy tag) + 5 (likert scale) = 11.
	// Score: option b explicit 3 + legacy tag 1 = 4.
	if result.Primary.Score != 4 {
		t.Fatalf("expected score 4, got %v", result.Primary.Score)
	}
	wantPct := 4.0 / 11.0 * 100
	if diff := result.Primary.Percentage - wantPct; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected %v%%, got %v%%", wantPct, result.Primary.Percentage)
	}
}

func TestMaxScoreFallback(t *testing.T) {
	// A binary question whose category has no other scoring surface:
	// estimation would give 1, but a category with no scoring options at
	// all falls back to 10.
	questions := []domain.Question{
		{ID: "q1", Type: domain.Slider, Category: "tension", Min: 0, Max: 0},
	}
	cfg := domain.ScoringConfig{Type: domain.HighestWins}

	if got := maxScoreFor(cfg, questions, "tension"); got != 10 {
		t.Fatalf("expected fallback max 10, got %v", got)
	}
}
