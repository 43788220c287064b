package app

import (
	"log"
	"time"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/validate"
)

// EventType identifies one lifecycle event of a quiz attempt.
type EventType string

const (
	EventStarted    EventType = "started"
	EventAnswered   EventType = "answered"
	EventNavigation EventType = "navigation"
	EventSkipped    EventType = "skipped"
	EventCompleted  EventType = "completed"
	EventRestarted  EventType = "restarted"
)

// Event is delivered synchronously to subscribers of its type.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// StartedPayload accompanies started and restarted events.
type StartedPayload struct {
	QuizID    string `json:"quizId"`
	AttemptID string `json:"attemptId"`
}

// AnsweredPayload carries the accepted answer.
type AnsweredPayload struct {
	QuestionID string          `json:"questionId"`
	Value      any             `json:"value"`
	Validation validate.Result `json:"validation"`
}

// NavigationPayload carries a cursor move within the attempt order.
type NavigationPayload struct {
	From     int             `json:"from"`
	To       int             `json:"to"`
	Question domain.Question `json:"question"`
}

// SkippedPayload names the question that was skipped.
type SkippedPayload struct {
	QuestionID string `json:"questionId"`
}

// CompletedPayload carries the computed result and elapsed duration.
type CompletedPayload struct {
	Result   domain.QuizResult `json:"result"`
	Duration time.Duration     `json:"duration"`
}

// Handler receives events for a subscribed type.
type Handler func(Event)

// emitter is a single-process publish/subscribe fan-out. Delivery is
// synchronous and in subscription order; a panicking handler is logged
// and never aborts delivery to the remaining handlers.
type emitter struct {
	handlers map[EventType][]Handler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]Handler)}
}

func (e *emitter) subscribe(t EventType, h Handler) {
	e.handlers[t] = append(e.handlers[t], h)
}

func (e *emitter) emit(ev Event) {
	for _, h := range e.handlers[ev.Type] {
		deliver(h, ev)
	}
}

func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic on %s: %v", ev.Type, r)
		}
	}()
	h(ev)
}
