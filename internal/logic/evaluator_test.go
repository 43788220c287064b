package logic

import (
	"testing"
	"time"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

func answers(pairs map[string]any) map[string]domain.Answer {
	out := make(map[string]domain.Answer, len(pairs))
	for id, v := range pairs {
		out[id] = domain.Answer{Value: v, Timestamp: time.Unix(0, 0)}
	}
	return out
}

func TestEvaluateConditions(t *testing.T) {
	stored := answers(map[string]any{
		"q1": "yes",
		"q2": float64(7),
		"q3": []any{"a", "c"},
		"q4": "northwest",
	})

	cases := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"equals hit", domain.Condition{QuestionID: "q1", Operator: domain.OpEquals, Value: "yes"}, true},
		{"equals miss", domain.Condition{QuestionID: "q1", Operator: domain.OpEquals, Value: "no"}, false},
		{"equals numeric coercion", domain.Condition{QuestionID: "q2", Operator: domain.OpEquals, Value: "7"}, true},
		{"not-equals", domain.Condition{QuestionID: "q1", Operator: domain.OpNotEquals, Value: "no"}, true},
		{"contains membership", domain.Condition{QuestionID: "q3", Operator: domain.OpContains, Value: "c"}, true},
		{"contains membership miss", domain.Condition{QuestionID: "q3", Operator: domain.OpContains, Value: "b"}, false},
		{"contains substring", domain.Condition{QuestionID: "q4", Operator: domain.OpContains, Value: "west"}, true},
		{"not-contains", domain.Condition{QuestionID: "q3", Operator: domain.OpNotContains, Value: "b"}, true},
		{"greater-than", domain.Condition{QuestionID: "q2", Operator: domain.OpGreaterThan, Value: float64(5)}, true},
		{"less-than", domain.Condition{QuestionID: "q2", Operator: domain.OpLessThan, Value: float64(5)}, false},
		{"in-range", domain.Condition{QuestionID: "q2", Operator: domain.OpInRange, Value: []any{float64(5), float64(10)}}, true},
		{"in-range below", domain.Condition{QuestionID: "q2", Operator: domain.OpInRange, Value: []any{float64(8), float64(10)}}, false},
		{"in-range malformed triple", domain.Condition{QuestionID: "q2", Operator: domain.OpInRange, Value: []any{float64(1), float64(2), float64(3)}}, false},
		{"in-range malformed scalar", domain.Condition{QuestionID: "q2", Operator: domain.OpInRange, Value: float64(7)}, false},
		{"unknown operator", domain.Condition{QuestionID: "q1", Operator: "startswith", Value: "y"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := &domain.LogicRule{Operator: domain.LogicAnd, Conditions: []domain.Condition{tc.cond}}
			if got := Evaluate(rule, stored); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluateUnansweredSemantics(t *testing.T) {
	empty := answers(nil)

	falsy := []domain.ConditionOperator{domain.OpEquals, domain.OpContains, domain.OpGreaterThan, domain.OpLessThan, domain.OpInRange}
	for _, op := range falsy {
		rule := &domain.LogicRule{Operator: domain.LogicAnd, Conditions: []domain.Condition{
			{QuestionID: "missing", Operator: op, Value: "yes"},
		}}
		if Evaluate(rule, empty) {
			t.Fatalf("operator %s against unanswered question should be false", op)
		}
	}

	// not-equals/not-contains follow their literal semantics against
	// undefined and evaluate true. Preserved legacy behavior.
	truthy := []domain.ConditionOperator{domain.OpNotEquals, domain.OpNotContains}
	for _, op := range truthy {
		rule := &domain.LogicRule{Operator: domain.LogicAnd, Conditions: []domain.Condition{
			{QuestionID: "missing", Operator: op, Value: "yes"},
		}}
		if !Evaluate(rule, empty) {
			t.Fatalf("operator %s against unanswered question should be true", op)
		}
	}
}

func TestEvaluateAndOr(t *testing.T) {
	stored := answers(map[string]any{"q1": "yes", "q2": "no"})

	and := &domain.LogicRule{Operator: domain.LogicAnd, Conditions: []domain.Condition{
		{QuestionID: "q1", Operator: domain.OpEquals, Value: "yes"},
		{QuestionID: "q2", Operator: domain.OpEquals, Value: "yes"},
	}}
	if Evaluate(and, stored) {
		t.Fatalf("AND with one false condition should be false")
	}

	or := &domain.LogicRule{Operator: domain.LogicOr, Conditions: []domain.Condition{
		{QuestionID: "q1", Operator: domain.OpEquals, Value: "yes"},
		{QuestionID: "q2", Operator: domain.OpEquals, Value: "yes"},
	}}
	if !Evaluate(or, stored) {
		t.Fatalf("OR with one true condition should be true")
	}

	if !Evaluate(&domain.LogicRule{Operator: domain.LogicAnd}, stored) {
		t.Fatalf("empty AND should be true")
	}
	if Evaluate(&domain.LogicRule{Operator: domain.LogicOr}, stored) {
		t.Fatalf("empty OR should be false")
	}
}

func TestVisible(t *testing.T) {
	q := domain.Question{
		ID:   "q2",
		Type: domain.SingleChoice,
		ConditionalDisplay: &domain.LogicRule{
			Operator: domain.LogicAnd,
			Conditions: []domain.Condition{
				{QuestionID: "q1", Operator: domain.OpEquals, Value: "yes"},
			},
		},
	}

	if Visible(q, answers(nil)) {
		t.Fatalf("question gated on unanswered q1 should be hidden")
	}
	if !Visible(q, answers(map[string]any{"q1": "yes"})) {
		t.Fatalf("question should be visible once the gate matches")
	}

	bare := domain.Question{ID: "q1", Type: domain.SingleChoice}
	if !Visible(bare, answers(nil)) {
		t.Fatalf("question without a rule is always visible")
	}
}
