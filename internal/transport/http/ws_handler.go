package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/app"
	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// WSHandler hosts one quiz engine per websocket connection and relays
// engine events to the renderer on the other end.
type WSHandler struct {
	definitions app.DefinitionRepository
	snapshots   app.SnapshotStore
	delivery    app.ResultDelivery
	upgrader    websocket.Upgrader
}

// NewWSHandler wires the handler. Snapshots and delivery may be nil; the
// engine then runs without persistence or outbound results.
func NewWSHandler(definitions app.DefinitionRepository, snapshots app.SnapshotStore, delivery app.ResultDelivery) *WSHandler {
	return &WSHandler{
		definitions: definitions,
		snapshots:   snapshots,
		delivery:    delivery,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value any `json:"value"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// positionPayload reports where the attempt stands after a navigation or
// answer operation. Question is nil once the attempt is past the end.
type positionPayload struct {
	Question     *domain.Question `json:"question,omitempty"`
	VisibleIndex int              `json:"visibleIndex"`
	VisibleCount int              `json:"visibleCount"`
	Progress     float64          `json:"progress"`
	HasMore      bool             `json:"hasMore"`
}

// ServeWS upgrades the request and drives one quiz attempt over it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	quiz, err := h.definitions.GetDefinition(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	var opts []app.Option
	if h.snapshots != nil {
		opts = append(opts, app.WithSnapshotStore(h.snapshots))
	}
	if h.delivery != nil {
		opts = append(opts, app.WithDelivery(h.delivery))
	}
	engine := app.NewEngine(quiz, opts...)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	relay := func(ev app.Event) {
		select {
		case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev.Payload}:
		case <-closeSignals:
		}
	}
	for _, t := range []app.EventType{
		app.EventStarted, app.EventAnswered, app.EventNavigation,
		app.EventSkipped, app.EventCompleted, app.EventRestarted,
	} {
		engine.On(t, relay)
	}

	if engine.Restore(r.Context()) {
		send <- outboundMessage[any]{Type: "resumed", Payload: engine.State()}
	} else {
		engine.Start()
	}
	send <- h.position(engine)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			res, err := engine.SubmitAnswer(payload.Value)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if !res.IsValid {
				send <- outboundMessage[any]{Type: "validationError", Payload: res}
				continue
			}
			send <- h.position(engine)
		case "next":
			engine.Next()
			send <- h.position(engine)
		case "previous":
			engine.Previous()
			send <- h.position(engine)
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}}
				continue
			}
			if !engine.GoToQuestion(payload.Index) {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "cannot jump to question"}}
				continue
			}
			send <- h.position(engine)
		case "skip":
			engine.Skip()
			send <- h.position(engine)
		case "metadata":
			var partial map[string]any
			if err := json.Unmarshal(inbound.Payload, &partial); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid metadata payload"}}
				continue
			}
			engine.SetMetadata(partial)
		case "complete":
			if _, err := engine.Complete(); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
			// Result travels on the relayed completed event.
		case "restart":
			engine.Restart()
			send <- h.position(engine)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	close(send)
	<-writerDone
}

func (h *WSHandler) position(engine *app.Engine) outboundMessage[any] {
	payload := positionPayload{
		VisibleIndex: engine.VisibleIndex(),
		VisibleCount: engine.VisibleCount(),
		Progress:     engine.Progress(),
	}
	if q, ok := engine.CurrentQuestion(); ok {
		payload.Question = &q
		payload.HasMore = true
	}
	return outboundMessage[any]{Type: "position", Payload: payload}
}
