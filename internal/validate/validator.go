package validate

import (
	"fmt"
	"regexp"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/logic"
)

// Stable error codes surfaced to renderers.
const (
	CodeRequired      = "required"
	CodeMinSelections = "min-selections"
	CodeMaxSelections = "max-selections"
	CodeMinLength     = "min-length"
	CodeMaxLength     = "max-length"
	CodePattern       = "pattern"
	CodeInvalidFormat = "invalid-format"
	CodeOutOfRange    = "out-of-range"
)

// Error is one structured validation failure.
type Error struct {
	QuestionID string `json:"questionId"`
	Message    string `json:"message"`
	Code       string `json:"code"`
}

// Result aggregates the outcome of validating one or more answers.
type Result struct {
	IsValid bool    `json:"isValid"`
	Errors  []Error `json:"errors,omitempty"`
}

func failure(errs ...Error) Result {
	return Result{IsValid: false, Errors: errs}
}

var ok = Result{IsValid: true}

// Validate checks a candidate value against one question definition.
// Required emptiness is checked first and short-circuits; an empty optional
// answer passes trivially; otherwise shape checks dispatch on the variant.
func Validate(q domain.Question, value any) Result {
	if domain.IsEmpty(value) {
		if q.IsRequired() {
			return failure(Error{
				QuestionID: q.ID,
				Message:    "This question requires an answer",
				Code:       CodeRequired,
			})
		}
		return ok
	}

	var errs []Error
	switch q.Type {
	case domain.MultiChoice:
		errs = checkSelections(q, value)
	case domain.TextInput:
		errs = checkText(q, value)
	case domain.Slider:
		errs = checkSlider(q, value)
	case domain.Likert:
		if _, numeric := domain.ToFloat(value); !numeric {
			errs = append(errs, Error{
				QuestionID: q.ID,
				Message:    "Answer must be a number",
				Code:       CodeInvalidFormat,
			})
		}
	case domain.SingleChoice, domain.Binary, domain.Scenario, domain.Matrix,
		domain.Ranking, domain.ImageChoice:
		// No additional shape checks for these variants.
	}

	if len(errs) > 0 {
		return failure(errs...)
	}
	return ok
}

func checkSelections(q domain.Question, value any) []Error {
	selected, isSeq := domain.ToSlice(value)
	count := 1
	if isSeq {
		count = len(selected)
	}

	var errs []Error
	if q.MinSelections > 0 && count < q.MinSelections {
		errs = append(errs, Error{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("Select at least %d options", q.MinSelections),
			Code:       CodeMinSelections,
		})
	}
	if q.MaxSelections > 0 && count > q.MaxSelections {
		errs = append(errs, Error{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("Select at most %d options", q.MaxSelections),
			Code:       CodeMaxSelections,
		})
	}
	return errs
}

func checkText(q domain.Question, value any) []Error {
	text := domain.ToString(value)

	var errs []Error
	if q.MinLength > 0 && len(text) < q.MinLength {
		errs = append(errs, Error{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("Answer must be at least %d characters", q.MinLength),
			Code:       CodeMinLength,
		})
	}
	if q.MaxLength > 0 && len(text) > q.MaxLength {
		errs = append(errs, Error{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("Answer must be at most %d characters", q.MaxLength),
			Code:       CodeMaxLength,
		})
	}
	if q.Pattern != "" {
		// An invalid pattern is a configuration gap, not a user error.
		if re, err := regexp.Compile(q.Pattern); err == nil && !re.MatchString(text) {
			errs = append(errs, Error{
				QuestionID: q.ID,
				Message:    "Answer does not match the expected format",
				Code:       CodePattern,
			})
		}
	}
	return errs
}

func checkSlider(q domain.Question, value any) []Error {
	n, numeric := domain.ToFloat(value)
	if !numeric {
		return []Error{{
			QuestionID: q.ID,
			Message:    "Answer must be a number",
			Code:       CodeInvalidFormat,
		}}
	}
	if q.Max > q.Min && (n < q.Min || n > q.Max) {
		return []Error{{
			QuestionID: q.ID,
			Message:    fmt.Sprintf("Answer must be between %v and %v", q.Min, q.Max),
			Code:       CodeOutOfRange,
		}}
	}
	return nil
}

// ValidateAnswers validates an entire answer set against a question list,
// skipping questions currently hidden by conditional logic.
func ValidateAnswers(questions []domain.Question, answers map[string]domain.Answer) Result {
	var errs []Error
	for _, q := range questions {
		if !logic.Visible(q, answers) {
			continue
		}
		var value any
		if answer, answered := answers[q.ID]; answered {
			value = answer.Value
		}
		if res := Validate(q, value); !res.IsValid {
			errs = append(errs, res.Errors...)
		}
	}
	if len(errs) > 0 {
		return failure(errs...)
	}
	return ok
}

// Unanswered lists the visible required questions without a non-empty answer.
func Unanswered(questions []domain.Question, answers map[string]domain.Answer) []string {
	var missing []string
	for _, q := range questions {
		if !q.IsRequired() || !logic.Visible(q, answers) {
			continue
		}
		answer, answered := answers[q.ID]
		if !answered || domain.IsEmpty(answer.Value) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// AllAnswered reports whether every visible required question has an answer.
func AllAnswered(questions []domain.Question, answers map[string]domain.Answer) bool {
	return len(Unanswered(questions, answers)) == 0
}
