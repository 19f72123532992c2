package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"league-games-service/internal/domain"
	"league-games-service/internal/game"
)

// WSHandler runs quiz sessions over a websocket connection. One connection
// owns at most one live session; starting or restarting closes the previous
// one (which cancels any pending auto-advance).
type WSHandler struct {
	engine   *game.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *game.Engine, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		engine: engine,
		logger: logger,
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

type startPayload struct {
	Mode string `json:"mode"`
}

type answerPayload struct {
	Choice string `json:"choice"`
}

type answerResult struct {
	Correct bool   `json:"correct"`
	Answer  string `json:"answer"`
	Score   int    `json:"score"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives the game protocol. Identity is the
// optional "name" query parameter; anonymous players can play but their
// scores are not persisted.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	var session *game.Session
	var cancelSub func()
	var forwards sync.WaitGroup

	closeSession := func() {
		if cancelSub != nil {
			cancelSub()
			cancelSub = nil
		}
		if session != nil {
			session.Close()
			session = nil
		}
	}
	defer closeSession()

	forward := func(updates <-chan game.Snapshot) {
		defer forwards.Done()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				kind := "question"
				if update.Finished {
					kind = "finished"
				}
				select {
				case send <- outboundMessage[any]{Type: kind, Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}

	startSession := func(mode domain.Mode) {
		closeSession()
		next, err := h.engine.StartSession(r.Context(), mode, player)
		if err != nil {
			if structuralError(err) {
				h.logger.Error("session could not start", zap.String("mode", string(mode)), zap.Error(err))
			}
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		session = next
		updates, cancel := session.Subscribe()
		cancelSub = cancel
		forwards.Add(1)
		go forward(updates)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			_ = json.Unmarshal(inbound.Payload, &payload)
			mode := domain.Mode(payload.Mode)
			if mode == "" {
				mode = domain.ModeQuick
			}
			startSession(mode)
		case "answer":
			if session == nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "no session in progress"}}
				continue
			}
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			correct, answer, err := session.Submit(payload.Choice)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				Correct: correct,
				Answer:  answer,
				Score:   session.Score(),
			}}
		case "skip":
			if session == nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "no session in progress"}}
				continue
			}
			if err := session.Skip(); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "restart":
			mode := domain.ModeQuick
			if session != nil {
				mode = session.Mode()
			} else {
				var payload startPayload
				if err := json.Unmarshal(inbound.Payload, &payload); err == nil && payload.Mode != "" {
					mode = domain.Mode(payload.Mode)
				}
			}
			startSession(mode)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	closeSession()
	close(closeSignals)
	forwards.Wait()
	close(send)
	<-writerDone
}

// structuralError reports whether an engine error indicates bad configuration
// rather than a transient condition.
func structuralError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientRoster) || errors.Is(err, domain.ErrUnknownMode)
}
