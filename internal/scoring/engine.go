package scoring

import (
	"sort"
	"strings"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// GroundZeroKey overrides every other result key when the war scores are
// simultaneously high and close together.
const GroundZeroKey = "ground-zero"

// UnknownCategory is the primary category reported when nothing scored.
const UnknownCategory = "unknown"

// The composite strategy and ground-zero detection work over these fixed
// reference sets. Order matters: ties resolve to the earlier entry.
var (
	WarCategories  = []string{"abandonment", "exposure", "entrapment", "erasure"}
	MaskCategories = []string{"flooded", "armored", "phantom", "analyzer"}
)

// CalculateResults converts a completed answer set into a QuizResult.
// It is pure and deterministic: identical inputs always produce an
// identical result. Answers referencing unknown questions are skipped,
// and a state with no answers yields all-zero scores under the
// "unknown" key; it never fails.
func CalculateResults(cfg domain.ScoringConfig, questions []domain.Question, state domain.QuizState) domain.QuizResult {
	acc := newAccumulator(cfg)
	var trail []domain.ContributionRecord

	// Iterate questions in definition order so category first-seen order
	// (and with it tie-breaking) never depends on map iteration.
	for _, q := range questions {
		answer, answered := state.Answers[q.ID]
		if !answered {
			continue
		}
		contribs := contributionsFor(q, answer.Value)
		if len(contribs) == 0 {
			continue
		}
		for _, c := range contribs {
			acc.add(c)
		}
		trail = append(trail, domain.ContributionRecord{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			AnswerText:   answerText(q, answer.Value),
			Scores:       contribs,
		})
	}

	primary, secondary := resolveDimensions(cfg, questions, acc)
	groundZero := detectGroundZero(cfg.GroundZero, acc.scores)
	key := buildKey(cfg.Type, acc.scores, primary, secondary, groundZero)

	completedAt := state.StartedAt
	if state.CompletedAt != nil {
		completedAt = *state.CompletedAt
	}

	return domain.QuizResult{
		Key:           key,
		Primary:       primary,
		Secondary:     secondary,
		Scores:        acc.scores,
		Contributions: trail,
		GroundZero:    groundZero,
		CompletedAt:   completedAt,
	}
}

// accumulator tracks per-category totals plus the order categories were
// first seen: configured categories first, then by first contribution.
type accumulator struct {
	scores map[string]float64
	order  []string
}

func newAccumulator(cfg domain.ScoringConfig) *accumulator {
	acc := &accumulator{scores: make(map[string]float64, len(cfg.Categories))}
	for _, cat := range cfg.Categories {
		acc.scores[cat.Name] = 0
		acc.order = append(acc.order, cat.Name)
	}
	return acc
}

func (a *accumulator) add(c domain.ScoreContribution) {
	if c.Category == "" {
		return
	}
	if _, seen := a.scores[c.Category]; !seen {
		a.order = append(a.order, c.Category)
		a.scores[c.Category] = 0
	}
	weight := c.Weight
	if weight == 0 {
		weight = 1
	}
	a.scores[c.Category] += c.Value * weight
}

// contributionsFor extracts the score contributions one answer produces,
// dispatching on the question variant.
func contributionsFor(q domain.Question, value any) []domain.ScoreContribution {
	switch q.Type {
	case domain.SingleChoice, domain.Scenario, domain.ImageChoice:
		opt, found := q.OptionByValue(domain.ToString(value))
		if !found {
			return nil
		}
		return optionContributions(opt, true)

	case domain.MultiChoice:
		selected, isSeq := domain.ToSlice(value)
		if !isSeq {
			selected = []any{value}
		}
		var out []domain.ScoreContribution
		for _, sel := range selected {
			if opt, found := q.OptionByValue(domain.ToString(sel)); found {
				out = append(out, optionContributions(opt, false)...)
			}
		}
		return out

	case domain.Binary:
		positive := q.PositiveValue
		if positive == nil {
			positive = float64(1)
		}
		if q.Category == "" || !domain.LooseEqual(value, positive) {
			return nil
		}
		return []domain.ScoreContribution{{Category: q.Category, Value: 1, Weight: 1}}

	case domain.Likert:
		n, numeric := domain.ToFloat(value)
		if !numeric || q.Category == "" {
			return nil
		}
		if q.ReverseCoded && q.ScalePoints > 0 {
			n = float64(q.ScalePoints) - n + 1
		}
		return []domain.ScoreContribution{{Category: q.Category, Value: n, Weight: 1}}

	case domain.Slider:
		n, numeric := domain.ToFloat(value)
		if !numeric || q.Category == "" {
			return nil
		}
		return []domain.ScoreContribution{{Category: q.Category, Value: n, Weight: 1}}

	case domain.Matrix, domain.Ranking, domain.TextInput:
		return nil
	}
	return nil
}

// optionContributions flattens an option's explicit scores; legacy
// war/mask/archetype tags count as one point each for single-select
// variants only.
func optionContributions(opt domain.ChoiceOption, legacyTags bool) []domain.ScoreContribution {
	out := append([]domain.ScoreContribution(nil), opt.Scores...)
	if legacyTags {
		for _, tag := range []string{opt.War, opt.Mask, opt.Archetype} {
			if tag != "" {
				out = append(out, domain.ScoreContribution{Category: tag, Value: 1, Weight: 1})
			}
		}
	}
	return out
}

func resolveDimensions(cfg domain.ScoringConfig, questions []domain.Question, acc *accumulator) (domain.Dimension, *domain.Dimension) {
	type ranked struct {
		category string
		score    float64
		index    int
	}

	var positive []ranked
	for i, cat := range acc.order {
		if acc.scores[cat] > 0 {
			positive = append(positive, ranked{category: cat, score: acc.scores[cat], index: i})
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		if positive[i].score != positive[j].score {
			return positive[i].score > positive[j].score
		}
		return positive[i].index < positive[j].index
	})

	if len(positive) == 0 {
		return domain.Dimension{Category: UnknownCategory}, nil
	}

	primary := buildDimension(cfg, questions, positive[0].category, positive[0].score)
	if len(positive) == 1 {
		return primary, nil
	}
	secondary := buildDimension(cfg, questions, positive[1].category, positive[1].score)
	return primary, &secondary
}

func buildDimension(cfg domain.ScoringConfig, questions []domain.Question, category string, score float64) domain.Dimension {
	max := maxScoreFor(cfg, questions, category)
	dim := domain.Dimension{
		Category:   category,
		Score:      score,
		Percentage: score / max * 100,
	}
	if catCfg, found := categoryConfig(cfg, category); found {
		dim.Level = levelFor(catCfg, score)
	}
	return dim
}

func categoryConfig(cfg domain.ScoringConfig, category string) (domain.CategoryConfig, bool) {
	for _, cat := range cfg.Categories {
		if cat.Name == category {
			return cat, true
		}
	}
	return domain.CategoryConfig{}, false
}

func levelFor(cat domain.CategoryConfig, score float64) string {
	for _, t := range cat.Thresholds {
		if score >= t.Min && score <= t.Max {
			return t.Level
		}
	}
	return ""
}

// maxScoreFor prefers the configured max and otherwise estimates it by
// summing every contribution any option in the quiz could produce toward
// the category. Categories with no scoring surface fall back to 10 so
// percentages never divide by zero.
func maxScoreFor(cfg domain.ScoringConfig, questions []domain.Question, category string) float64 {
	if cat, found := categoryConfig(cfg, category); found && cat.MaxScore > 0 {
		return cat.MaxScore
	}

	var total float64
	for _, q := range questions {
		switch q.Type {
		case domain.SingleChoice, domain.MultiChoice, domain.Scenario, domain.ImageChoice:
			for _, opt := range q.Options {
				for _, c := range opt.Scores {
					if c.Category == category {
						weight := c.Weight
						if weight == 0 {
							weight = 1
						}
						total += c.Value * weight
					}
				}
				for _, tag := range []string{opt.War, opt.Mask, opt.Archetype} {
					if tag == category {
						total++
					}
				}
			}
		case domain.Likert:
			if q.Category == category && q.ScalePoints > 0 {
				total += float64(q.ScalePoints)
			}
		case domain.Slider:
			if q.Category == category {
				total += q.Max
			}
		case domain.Binary:
			if q.Category == category {
				total++
			}
		case domain.Matrix, domain.Ranking, domain.TextInput:
		}
	}
	if total <= 0 {
		return 10
	}
	return total
}

// detectGroundZero applies only when configured: among the fixed war set,
// at least MinCategories must reach MinScore and the spread between the
// highest and lowest qualifying score must stay within MaxSpread.
func detectGroundZero(cfg *domain.GroundZeroConfig, scores map[string]float64) bool {
	if cfg == nil {
		return false
	}
	var qualifying []float64
	for _, war := range WarCategories {
		if score := scores[war]; score >= cfg.MinScore {
			qualifying = append(qualifying, score)
		}
	}
	if len(qualifying) < cfg.MinCategories {
		return false
	}
	lo, hi := qualifying[0], qualifying[0]
	for _, score := range qualifying[1:] {
		if score < lo {
			lo = score
		}
		if score > hi {
			hi = score
		}
	}
	return hi-lo <= cfg.MaxSpread
}

func buildKey(strategy domain.ScoringType, scores map[string]float64, primary domain.Dimension, secondary *domain.Dimension, groundZero bool) string {
	if groundZero {
		return GroundZeroKey
	}
	if strategy == domain.Composite {
		war := topOf(WarCategories, scores)
		mask := topOf(MaskCategories, scores)
		if war != "" && mask != "" {
			return war + "-" + mask
		}
		// Either set scoreless: fall through to highest-wins.
	}
	if secondary != nil {
		return primary.Category + "-" + secondary.Category
	}
	return primary.Category
}

// topOf picks the highest positive score in a fixed set; strictly-greater
// comparison keeps ties on the earlier entry.
func topOf(set []string, scores map[string]float64) string {
	best := ""
	bestScore := 0.0
	for _, cat := range set {
		if scores[cat] > bestScore {
			best = cat
			bestScore = scores[cat]
		}
	}
	return best
}

// answerText renders a stored answer for the contribution trail.
func answerText(q domain.Question, value any) string {
	switch q.Type {
	case domain.SingleChoice, domain.Scenario, domain.ImageChoice, domain.Binary:
		if opt, found := q.OptionByValue(domain.ToString(value)); found && opt.Text != "" {
			return opt.Text
		}
		return domain.ToString(value)
	case domain.MultiChoice:
		selected, isSeq := domain.ToSlice(value)
		if !isSeq {
			selected = []any{value}
		}
		parts := make([]string, 0, len(selected))
		for _, sel := range selected {
			if opt, found := q.OptionByValue(domain.ToString(sel)); found && opt.Text != "" {
				parts = append(parts, opt.Text)
			} else {
				parts = append(parts, domain.ToString(sel))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return domain.ToString(value)
	}
}
