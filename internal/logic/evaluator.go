package logic

import (
	"strings"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// Evaluate resolves a conditional-display rule against the stored answers.
// Deterministic and side-effect free; malformed shapes resolve to false
// rather than failing.
//
// An unanswered question compares as undefined: equals/contains and the
// numeric operators evaluate false, while not-equals/not-contains evaluate
// true ("undefined is not X"). That last part is observed legacy behavior
// and is kept on purpose.
func Evaluate(rule *domain.LogicRule, answers map[string]domain.Answer) bool {
	if rule == nil {
		return true
	}
	if rule.Operator == domain.LogicOr {
		for _, cond := range rule.Conditions {
			if evalCondition(cond, answers) {
				return true
			}
		}
		return false
	}
	// AND is the default for unknown operators.
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, answers) {
			return false
		}
	}
	return true
}

// Visible reports whether a question is part of the current attempt.
func Visible(q domain.Question, answers map[string]domain.Answer) bool {
	return Evaluate(q.ConditionalDisplay, answers)
}

func evalCondition(cond domain.Condition, answers map[string]domain.Answer) bool {
	answer, answered := answers[cond.QuestionID]
	var value any
	if answered {
		value = answer.Value
	}

	switch cond.Operator {
	case domain.OpEquals:
		return answered && domain.LooseEqual(value, cond.Value)
	case domain.OpNotEquals:
		return !answered || !domain.LooseEqual(value, cond.Value)
	case domain.OpContains:
		return answered && contains(value, cond.Value)
	case domain.OpNotContains:
		return !answered || !contains(value, cond.Value)
	case domain.OpGreaterThan:
		a, aok := domain.ToFloat(value)
		b, bok := domain.ToFloat(cond.Value)
		return answered && aok && bok && a > b
	case domain.OpLessThan:
		a, aok := domain.ToFloat(value)
		b, bok := domain.ToFloat(cond.Value)
		return answered && aok && bok && a < b
	case domain.OpInRange:
		return answered && inRange(value, cond.Value)
	default:
		return false
	}
}

// contains is a membership test for sequence answers and a substring test
// on the string-coerced forms for scalars.
func contains(value, needle any) bool {
	if seq, ok := domain.ToSlice(value); ok {
		for _, elem := range seq {
			if domain.LooseEqual(elem, needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(domain.ToString(value), domain.ToString(needle))
}

// inRange expects bounds as a two-element [lo, hi] pair; any other shape
// evaluates false.
func inRange(value, bounds any) bool {
	pair, ok := domain.ToSlice(bounds)
	if !ok || len(pair) != 2 {
		return false
	}
	v, vok := domain.ToFloat(value)
	lo, look := domain.ToFloat(pair[0])
	hi, hiok := domain.ToFloat(pair[1])
	return vok && look && hiok && v >= lo && v <= hi
}
