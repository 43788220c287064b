package domain

import "time"

// QuestionType is the closed set of question variants the runtime understands.
type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	Binary       QuestionType = "binary"
	Likert       QuestionType = "likert"
	Slider       QuestionType = "slider"
	Scenario     QuestionType = "scenario"
	Matrix       QuestionType = "matrix"
	Ranking      QuestionType = "ranking"
	TextInput    QuestionType = "text-input"
	ImageChoice  QuestionType = "image-choice"
)

// LogicOperator joins the conditions of a display rule.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// ConditionOperator compares a stored answer against a condition value.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not-equals"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not-contains"
	OpGreaterThan ConditionOperator = "greater-than"
	OpLessThan    ConditionOperator = "less-than"
	OpInRange     ConditionOperator = "in-range"
)

// Condition compares one prior answer against a value.
type Condition struct {
	QuestionID string            `json:"questionId"`
	Operator   ConditionOperator `json:"operator"`
	Value      any               `json:"value"`
}

// LogicRule is a boolean expression over prior answers that gates
// whether a question is part of the current attempt.
type LogicRule struct {
	Operator   LogicOperator `json:"operator"`
	Conditions []Condition   `json:"conditions"`
}

// ScoreContribution credits value*weight points to a category.
// Weight defaults to 1 when zero.
type ScoreContribution struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Weight   float64 `json:"weight,omitempty"`
}

// ChoiceOption is one selectable answer of a choice-bearing question.
// The legacy war/mask/archetype tags each count as an implicit
// one-point contribution of weight 1 to that category.
type ChoiceOption struct {
	Value     string              `json:"value"`
	Text      string              `json:"text"`
	ImageURL  string              `json:"imageUrl,omitempty"`
	Scores    []ScoreContribution `json:"scores,omitempty"`
	War       string              `json:"war,omitempty"`
	Mask      string              `json:"mask,omitempty"`
	Archetype string              `json:"archetype,omitempty"`
}

// Question is one entry of a quiz definition. Variant-specific fields are
// only meaningful for the matching Type; the validator and scoring engine
// dispatch on Type exhaustively.
type Question struct {
	ID                 string       `json:"id"`
	Type               QuestionType `json:"type"`
	Text               string       `json:"text"`
	Required           *bool        `json:"required,omitempty"` // nil means required
	ConditionalDisplay *LogicRule   `json:"conditionalDisplay,omitempty"`

	// single-choice, multi-choice, scenario, image-choice
	Options       []ChoiceOption `json:"options,omitempty"`
	MinSelections int            `json:"minSelections,omitempty"`
	MaxSelections int            `json:"maxSelections,omitempty"`

	// text-input
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// slider
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// likert
	ScalePoints  int  `json:"scalePoints,omitempty"`
	ReverseCoded bool `json:"reverseCoded,omitempty"`

	// binary, likert, slider: the category credited by the answer.
	Category string `json:"category,omitempty"`
	// binary: the value that counts as a hit, defaults to 1.
	PositiveValue any `json:"positiveValue,omitempty"`

	// matrix
	Rows    []string `json:"rows,omitempty"`
	Columns []string `json:"columns,omitempty"`

	// ranking
	Items []string `json:"items,omitempty"`
}

// IsRequired reports the required flag, defaulting to true.
func (q Question) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// OptionByValue finds the option matching a stored answer value.
func (q Question) OptionByValue(value string) (ChoiceOption, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return ChoiceOption{}, false
}

// ScoringType selects how the final result key is constructed.
type ScoringType string

const (
	HighestWins     ScoringType = "highest-wins"
	Threshold       ScoringType = "threshold"
	WeightedAverage ScoringType = "weighted-average"
	Composite       ScoringType = "composite"
	Spectrum        ScoringType = "spectrum"
)

// ScoreThreshold maps an inclusive score range to a named level.
type ScoreThreshold struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Level string  `json:"level"`
}

// CategoryConfig declares one scored category. MaxScore zero means
// "estimate from the quiz content".
type CategoryConfig struct {
	Name       string           `json:"name"`
	MaxScore   float64          `json:"maxScore,omitempty"`
	Thresholds []ScoreThreshold `json:"thresholds,omitempty"`
}

// GroundZeroConfig tunes detection of several war scores being
// simultaneously high and close together.
type GroundZeroConfig struct {
	MinCategories int     `json:"minCategories"`
	MinScore      float64 `json:"minScore"`
	MaxSpread     float64 `json:"maxSpread"`
}

// ScoringConfig is the scoring strategy of one quiz.
type ScoringConfig struct {
	Type       ScoringType       `json:"type"`
	Categories []CategoryConfig  `json:"categories,omitempty"`
	GroundZero *GroundZeroConfig `json:"groundZero,omitempty"`
}

// Quiz is a complete declarative quiz definition.
type Quiz struct {
	ID               string        `json:"id"`
	Title            string        `json:"title,omitempty"`
	Questions        []Question    `json:"questions"`
	Scoring          ScoringConfig `json:"scoring"`
	RandomizeOrder   bool          `json:"randomizeOrder,omitempty"`
	AllowBack        bool          `json:"allowBack,omitempty"`
	AutoAdvance      bool          `json:"autoAdvance,omitempty"`
	AutoAdvanceDelay int           `json:"autoAdvanceDelayMs,omitempty"`
}

// QuestionByID looks a question up in the definition.
func (q Quiz) QuestionByID(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Answer is one stored response.
type Answer struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// QuizState is the single mutable entity of one quiz attempt. The engine
// owns it exclusively; everything else receives copies.
type QuizState struct {
	QuizID      string            `json:"quizId"`
	AttemptID   string            `json:"attemptId"`
	Current     int               `json:"current"` // index into the attempt's question order
	Answers     map[string]Answer `json:"answers"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// Clone returns a deep copy safe to hand to adapters.
func (s QuizState) Clone() QuizState {
	out := s
	out.Answers = make(map[string]Answer, len(s.Answers))
	for id, a := range s.Answers {
		out.Answers[id] = a
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Dimension is one resolved axis of a result.
type Dimension struct {
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
	Level      string  `json:"level,omitempty"`
}

// ContributionRecord explains what one answered question added to the scores.
type ContributionRecord struct {
	QuestionID   string              `json:"questionId"`
	QuestionText string              `json:"questionText"`
	AnswerText   string              `json:"answerText"`
	Scores       []ScoreContribution `json:"scores"`
}

// QuizResult is the immutable outcome of a completed attempt.
type QuizResult struct {
	Key           string               `json:"key"`
	Primary       Dimension            `json:"primary"`
	Secondary     *Dimension           `json:"secondary,omitempty"`
	Scores        map[string]float64   `json:"scores"`
	Contributions []ContributionRecord `json:"contributions,omitempty"`
	GroundZero    bool                 `json:"groundZero"`
	CompletedAt   time.Time            `json:"completedAt"`
}

// Snapshot is the persistence shape of an in-flight attempt.
type Snapshot struct {
	QuizID  string    `json:"quizId"`
	State   QuizState `json:"state"`
	Order   []int     `json:"questionOrder"`
	SavedAt time.Time `json:"savedAt"`
}

// ResultPayload is the outbound delivery shape emitted at completion.
type ResultPayload struct {
	QuizID    string     `json:"quizId"`
	Result    QuizResult `json:"result"`
	State     QuizState  `json:"state"`
	Timestamp time.Time  `json:"timestamp"`
}
