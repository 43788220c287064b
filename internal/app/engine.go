package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/logic"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/scoring"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/validate"
)

// SnapshotStore persists in-flight attempts. All operations are
// best-effort from the engine's point of view: failures are logged and
// never surface to callers.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context, quizID string) (domain.Snapshot, bool, error)
	Clear(ctx context.Context, quizID string) error
}

// ResultDelivery sends a completed result to an external endpoint.
type ResultDelivery interface {
	Deliver(ctx context.Context, payload domain.ResultPayload) error
}

// DefinitionRepository loads quiz definitions (from cache/backing store).
type DefinitionRepository interface {
	GetDefinition(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Engine drives one quiz attempt: navigation over a dynamically-visible
// question set, answer submission, progress, and completion. It owns the
// attempt state exclusively; adapters receive copies.
type Engine struct {
	quiz      domain.Quiz
	snapshots SnapshotStore
	delivery  ResultDelivery
	staleness time.Duration
	now       func() time.Time
	rnd       *rand.Rand
	events    *emitter

	mu         sync.Mutex
	state      domain.QuizState
	order      []int
	started    bool
	done       bool
	lastResult *domain.QuizResult
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotStore enables best-effort persistence of the attempt.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = store }
}

// WithDelivery enables fire-and-forget result delivery at completion.
func WithDelivery(d ResultDelivery) Option {
	return func(e *Engine) { e.delivery = d }
}

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand injects the source used for question-order shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithStaleness overrides the snapshot staleness window (default 24h).
func WithStaleness(d time.Duration) Option {
	return func(e *Engine) { e.staleness = d }
}

func NewEngine(quiz domain.Quiz, opts ...Option) *Engine {
	e := &Engine{
		quiz:      quiz,
		staleness: 24 * time.Hour,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		events:    newEmitter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers a handler for one event type. Handlers run synchronously
// in subscription order on the goroutine that triggered the event.
func (e *Engine) On(t EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events.subscribe(t, h)
}

// Start resets to a fresh attempt and emits a started event.
func (e *Engine) Start() {
	e.mu.Lock()
	e.initLocked()
	ev := Event{Type: EventStarted, Payload: StartedPayload{QuizID: e.quiz.ID, AttemptID: e.state.AttemptID}}
	e.mu.Unlock()
	e.events.emit(ev)
}

// Restart reinitializes state and question order, clears any persisted
// snapshot, and emits a restarted event.
func (e *Engine) Restart() {
	e.mu.Lock()
	e.initLocked()
	ev := Event{Type: EventRestarted, Payload: StartedPayload{QuizID: e.quiz.ID, AttemptID: e.state.AttemptID}}
	e.mu.Unlock()
	e.clearSnapshot()
	e.events.emit(ev)
}

func (e *Engine) initLocked() {
	e.state = domain.QuizState{
		QuizID:    e.quiz.ID,
		AttemptID: uuid.NewString(),
		Answers:   make(map[string]domain.Answer),
		StartedAt: e.now(),
	}
	e.order = make([]int, len(e.quiz.Questions))
	for i := range e.order {
		e.order[i] = i
	}
	if e.quiz.RandomizeOrder {
		e.rnd.Shuffle(len(e.order), func(i, j int) {
			e.order[i], e.order[j] = e.order[j], e.order[i]
		})
	}
	e.started = true
	e.done = false
	e.lastResult = nil
	e.state.Current = e.nextVisibleLocked(-1)
}

// Restore rebuilds the attempt from a persisted snapshot. Snapshots older
// than the staleness window, or from an incompatible definition, are
// discarded. Returns whether a restore happened.
func (e *Engine) Restore(ctx context.Context) bool {
	if e.snapshots == nil {
		return false
	}
	snap, found, err := e.snapshots.Load(ctx, e.quiz.ID)
	if err != nil {
		log.Printf("snapshot load for quiz %s failed: %v", e.quiz.ID, err)
		return false
	}
	if !found {
		return false
	}
	if e.now().Sub(snap.SavedAt) > e.staleness || len(snap.Order) != len(e.quiz.Questions) {
		e.clearSnapshot()
		return false
	}

	e.mu.Lock()
	e.state = snap.State
	if e.state.Answers == nil {
		e.state.Answers = make(map[string]domain.Answer)
	}
	e.order = snap.Order
	e.started = true
	e.done = snap.State.CompletedAt != nil
	e.mu.Unlock()
	return true
}

// CurrentQuestion returns the question under the cursor. The second
// return is false when the attempt has not started or is past the end.
func (e *Engine) CurrentQuestion() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentQuestionLocked()
}

func (e *Engine) currentQuestionLocked() (domain.Question, bool) {
	if !e.started || e.state.Current < 0 || e.state.Current >= len(e.order) {
		return domain.Question{}, false
	}
	return e.quiz.Questions[e.order[e.state.Current]], true
}

// CurrentAnswer returns the stored answer for the current question.
func (e *Engine) CurrentAnswer() (domain.Answer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.currentQuestionLocked()
	if !ok {
		return domain.Answer{}, false
	}
	answer, answered := e.state.Answers[q.ID]
	return answer, answered
}

// SubmitAnswer validates the value against the current question. Invalid
// values are reported in the result and do not mutate state. On success
// the answer is stored, an answered event fires, an auto-advance may be
// scheduled, and a snapshot is persisted best-effort.
func (e *Engine) SubmitAnswer(value any) (validate.Result, error) {
	e.mu.Lock()
	if !e.started || e.done {
		e.mu.Unlock()
		return validate.Result{}, domain.ErrNotStarted
	}
	q, ok := e.currentQuestionLocked()
	if !ok {
		e.mu.Unlock()
		return validate.Result{}, domain.ErrNoActiveQuestion
	}

	res := validate.Validate(q, value)
	if !res.IsValid {
		e.mu.Unlock()
		return res, nil
	}

	e.state.Answers[q.ID] = domain.Answer{Value: value, Timestamp: e.now()}
	snap := e.snapshotLocked()
	attemptID := e.state.AttemptID
	ev := Event{Type: EventAnswered, Payload: AnsweredPayload{QuestionID: q.ID, Value: value, Validation: res}}
	e.mu.Unlock()

	e.events.emit(ev)
	e.persist(snap)

	if e.quiz.AutoAdvance {
		delay := time.Duration(e.quiz.AutoAdvanceDelay) * time.Millisecond
		time.AfterFunc(delay, func() { e.autoAdvance(attemptID) })
	}
	return res, nil
}

// autoAdvance is the detached follow-up to SubmitAnswer. It is a no-op if
// the attempt was completed or restarted in the meantime.
func (e *Engine) autoAdvance(attemptID string) {
	e.mu.Lock()
	stale := !e.started || e.done || e.state.AttemptID != attemptID
	e.mu.Unlock()
	if stale {
		return
	}
	e.Next()
}

// Next moves the cursor forward to the next visible question. Returns
// false, without moving, when none remains; the caller is expected to
// call Complete.
func (e *Engine) Next() bool {
	e.mu.Lock()
	if !e.started || e.done {
		e.mu.Unlock()
		return false
	}
	from := e.state.Current
	to := e.nextVisibleLocked(from)
	if to >= len(e.order) {
		e.mu.Unlock()
		return false
	}
	e.state.Current = to
	ev := e.navigationEventLocked(from, to)
	e.mu.Unlock()
	e.events.emit(ev)
	return true
}

// Previous mirrors Next in reverse. It is a no-op unless the quiz allows
// back-navigation, and never moves before the first question.
func (e *Engine) Previous() bool {
	if !e.quiz.AllowBack {
		return false
	}
	e.mu.Lock()
	if !e.started || e.done {
		e.mu.Unlock()
		return false
	}
	from := e.state.Current
	to := -1
	for i := from - 1; i >= 0; i-- {
		if logic.Visible(e.quiz.Questions[e.order[i]], e.state.Answers) {
			to = i
			break
		}
	}
	if to < 0 {
		e.mu.Unlock()
		return false
	}
	e.state.Current = to
	ev := e.navigationEventLocked(from, to)
	e.mu.Unlock()
	e.events.emit(ev)
	return true
}

// GoToQuestion jumps directly to an index in the attempt order. Rejected
// when out of bounds or when the target is hidden by conditional logic.
func (e *Engine) GoToQuestion(index int) bool {
	e.mu.Lock()
	if !e.started || e.done || index < 0 || index >= len(e.order) {
		e.mu.Unlock()
		return false
	}
	if !logic.Visible(e.quiz.Questions[e.order[index]], e.state.Answers) {
		e.mu.Unlock()
		return false
	}
	from := e.state.Current
	e.state.Current = index
	ev := e.navigationEventLocked(from, index)
	e.mu.Unlock()
	e.events.emit(ev)
	return true
}

// Skip advances past the current question without answering. Rejected
// for required questions.
func (e *Engine) Skip() bool {
	e.mu.Lock()
	q, ok := e.currentQuestionLocked()
	if !ok || e.done || q.IsRequired() {
		e.mu.Unlock()
		return false
	}
	ev := Event{Type: EventSkipped, Payload: SkippedPayload{QuestionID: q.ID}}
	e.mu.Unlock()
	e.events.emit(ev)
	return e.Next()
}

// SetMetadata shallow-merges into the attempt metadata and persists a
// snapshot.
func (e *Engine) SetMetadata(partial map[string]any) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	if e.state.Metadata == nil {
		e.state.Metadata = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		e.state.Metadata[k] = v
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.persist(snap)
}

// Complete stamps the completion time, computes the result, emits a
// completed event, clears the persisted snapshot, and dispatches the
// result to the delivery target as a detached task. The quiz is complete
// regardless of delivery outcome.
func (e *Engine) Complete() (domain.QuizResult, error) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return domain.QuizResult{}, domain.ErrNotStarted
	}
	if e.done && e.lastResult != nil {
		result := *e.lastResult
		e.mu.Unlock()
		return result, nil
	}

	completedAt := e.now()
	e.state.CompletedAt = &completedAt
	result := scoring.CalculateResults(e.quiz.Scoring, e.quiz.Questions, e.state.Clone())
	e.done = true
	e.state.Current = len(e.order)
	e.lastResult = &result

	payload := domain.ResultPayload{
		QuizID:    e.quiz.ID,
		Result:    result,
		State:     e.state.Clone(),
		Timestamp: completedAt,
	}
	duration := completedAt.Sub(e.state.StartedAt)
	e.mu.Unlock()

	e.events.emit(Event{Type: EventCompleted, Payload: CompletedPayload{Result: result, Duration: duration}})
	e.clearSnapshot()

	if e.delivery != nil {
		go func() {
			if err := e.delivery.Deliver(context.Background(), payload); err != nil {
				log.Printf("result delivery for quiz %s failed: %v", e.quiz.ID, err)
			}
		}()
	}
	return result, nil
}

// Progress is the percentage of currently-visible questions with a
// non-empty stored answer.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	total, answered := 0, 0
	for _, q := range e.quiz.Questions {
		if !logic.Visible(q, e.state.Answers) {
			continue
		}
		total++
		if answer, ok := e.state.Answers[q.ID]; ok && !domain.IsEmpty(answer.Value) {
			answered++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total) * 100
}

// VisibleCount is the number of questions in the current attempt after
// conditional logic.
func (e *Engine) VisibleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, q := range e.quiz.Questions {
		if logic.Visible(q, e.state.Answers) {
			count++
		}
	}
	return count
}

// VisibleIndex is the zero-based position of the current question within
// the visible subset, for "question 3 of 10" displays. Hidden questions
// before the cursor do not count.
func (e *Engine) VisibleIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := 0
	for i := 0; i < e.state.Current && i < len(e.order); i++ {
		if logic.Visible(e.quiz.Questions[e.order[i]], e.state.Answers) {
			index++
		}
	}
	return index
}

// UnansweredQuestions lists visible required questions without answers.
func (e *Engine) UnansweredQuestions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return validate.Unanswered(e.quiz.Questions, e.state.Answers)
}

// AllAnswered reports whether every visible required question is answered.
func (e *Engine) AllAnswered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return validate.AllAnswered(e.quiz.Questions, e.state.Answers)
}

// State returns a copy of the attempt state for inspection.
func (e *Engine) State() domain.QuizState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// nextVisibleLocked scans forward from after to the first question whose
// display rule is absent or evaluates true; len(order) means none remains.
func (e *Engine) nextVisibleLocked(after int) int {
	for i := after + 1; i < len(e.order); i++ {
		if logic.Visible(e.quiz.Questions[e.order[i]], e.state.Answers) {
			return i
		}
	}
	return len(e.order)
}

func (e *Engine) navigationEventLocked(from, to int) Event {
	return Event{Type: EventNavigation, Payload: NavigationPayload{
		From:     from,
		To:       to,
		Question: e.quiz.Questions[e.order[to]],
	}}
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		QuizID:  e.quiz.ID,
		State:   e.state.Clone(),
		Order:   append([]int(nil), e.order...),
		SavedAt: e.now(),
	}
}

func (e *Engine) persist(snap domain.Snapshot) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Save(context.Background(), snap); err != nil {
		log.Printf("snapshot save for quiz %s failed: %v", snap.QuizID, err)
	}
}

func (e *Engine) clearSnapshot() {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Clear(context.Background(), e.quiz.ID); err != nil {
		log.Printf("snapshot clear for quiz %s failed: %v", e.quiz.ID, err)
	}
}
