package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"league-games-service/internal/domain"
	"league-games-service/internal/game"
	"league-games-service/internal/schedule"
)

const defaultLeaderboardLimit = 10

// APIHandler serves the classified event calendar and leaderboards as JSON.
type APIHandler struct {
	calendar []domain.Activity
	engine   *game.Engine
	loc      *time.Location
	logger   *zap.Logger
	clock    func() time.Time
}

func NewAPIHandler(calendar []domain.Activity, engine *game.Engine, loc *time.Location, logger *zap.Logger) *APIHandler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		calendar: calendar,
		engine:   engine,
		loc:      loc,
		logger:   logger,
		clock:    time.Now,
	}
}

type eventsResponse struct {
	Now    string                      `json:"now"`
	Events []domain.ClassifiedActivity `json:"events"`
}

// Events classifies and orders the calendar against a single clock read, so
// one response is internally consistent.
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := h.clock().In(h.loc)
	writeJSON(w, eventsResponse{
		Now:    now.Format(time.RFC3339),
		Events: schedule.Order(now, h.calendar),
	})
}

type leaderboardResponse struct {
	Mode    domain.Mode               `json:"mode"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mode := domain.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModeQuick
	}
	if !mode.Valid() {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.engine.Leaderboard(r.Context(), mode, limit)
	if err != nil {
		h.logger.Warn("leaderboard read failed", zap.String("mode", string(mode)), zap.Error(err))
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, leaderboardResponse{Mode: mode, Entries: entries})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
