package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/engine"
	"github.com/Microgramix/Motoristas.ranking/server/internal/metrics"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
	"github.com/Microgramix/Motoristas.ranking/server/internal/store"
)

const driversPrefix = "/api/v1/drivers/"

// maxSelectionBody caps PUT /api/v1/selection bodies.
const maxSelectionBody = 4 << 10

// Handler is the HTTP handler for every route of the server.
type Handler struct {
	eng     *engine.Engine
	view    *engine.View
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes. m may be nil, in which case
// /metrics is not served.
func New(eng *engine.Engine, view *engine.View, m *metrics.Metrics) http.Handler {
	h := &Handler{eng: eng, view: view, metrics: m, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/ranking", h.ranking)
	h.mux.HandleFunc(driversPrefix, h.driver)
	h.mux.HandleFunc("/api/v1/dates", h.dates)
	h.mux.HandleFunc("/api/v1/goals", h.goals)
	h.mux.HandleFunc("/api/v1/selection", h.selection)
	h.mux.HandleFunc("/api/v1/leaderboard", h.leaderboard)
	h.mux.HandleFunc("/api/v1/health", h.health)
	if m != nil {
		h.mux.Handle("/metrics", m.Handler())
	}

	return withRequestLog(h.mux, m)
}

// ranking serves GET /api/v1/ranking.
func (h *Handler) ranking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()

	trend := 0
	if s := q.Get("trend"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("trend %q must be a non-negative integer", s))
			return
		}
		trend = n
	}

	lb, err := h.eng.Leaderboard(r.Context(), engine.Request{Period: q.Get("period"), Date: q.Get("date")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trend > 0 {
		lb = ranking.Tail(lb, trend)
	}
	jsonResp(w, http.StatusOK, RankingResponse{Leaderboard: lb, Diagnostics: computeDiagnostics(lb)})
}

// driver serves GET /api/v1/drivers/{name}.
func (h *Handler) driver(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := correction.CanonicalName(strings.TrimPrefix(r.URL.Path, driversPrefix))
	if name == "" {
		jsonErr(w, http.StatusNotFound, "driver not found")
		return
	}

	q := r.URL.Query()
	lb, err := h.eng.Leaderboard(r.Context(), engine.Request{Period: q.Get("period"), Date: q.Get("date")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, ok := lb.Find(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "driver not found")
		return
	}
	jsonResp(w, http.StatusOK, e)
}

// dates serves GET /api/v1/dates.
func (h *Handler) dates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ds, err := h.eng.Dates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, DatesResponse{Dates: ds})
}

// goals serves GET /api/v1/goals.
func (h *Handler) goals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g, top := h.eng.Goals()
	jsonResp(w, http.StatusOK, GoalsResponse{Goals: g, HighlightTop: top})
}

// selection serves GET and PUT /api/v1/selection.
func (h *Handler) selection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, selectionResponse(h.view.Board().Current()))

	case http.MethodPut:
		var sel store.Selection
		dec := json.NewDecoder(io.LimitReader(r.Body, maxSelectionBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sel); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid selection body")
			return
		}
		if sel.Period == "" {
			jsonErr(w, http.StatusBadRequest, "period is required")
			return
		}
		if _, err := h.view.Select(r.Context(), sel); err != nil {
			writeError(w, r, err)
			return
		}
		jsonResp(w, http.StatusAccepted, selectionResponse(h.view.Board().Current()))

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func selectionResponse(s store.Snapshot) SelectionResponse {
	return SelectionResponse{
		Selection:  s.Selection,
		Requested:  s.Requested,
		Generation: s.Generation,
		Pending:    s.Pending,
	}
}

// leaderboard serves GET /api/v1/leaderboard.
func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s := h.view.Board().Current()
	if s.Err != nil {
		writeError(w, r, s.Err)
		return
	}
	if s.Board == nil {
		jsonErr(w, http.StatusServiceUnavailable, "leaderboard not ready")
		return
	}
	jsonResp(w, http.StatusOK, LeaderboardResponse{
		Selection:   s.Selection,
		Generation:  s.Generation,
		Pending:     s.Pending,
		UpdatedAt:   s.UpdatedAt.UTC().Format(time.RFC3339),
		Leaderboard: s.Board,
	})
}

// health serves GET /api/v1/health. Status is "ok" while the source breaker
// is closed and "degraded" otherwise.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	counters, err := h.metrics.Counters()
	if err != nil {
		slog.Warn("api: gather counters", "err", err)
		counters = map[string]float64{}
	}
	snap := h.view.Board().Current()
	resp := HealthResponse{
		Status:      "ok",
		Source:      h.eng.SourceName(),
		Breaker:     h.eng.BreakerState(),
		Today:       period.Format(h.eng.Today()),
		Corrections: len(h.eng.Corrections()),
		Selection:   snap.Requested,
		Counters:    counters,
	}
	if resp.Breaker != "closed" {
		resp.Status = "degraded"
	}
	if snap.Err != nil {
		resp.BoardError = snap.Err.Error()
	}
	jsonResp(w, http.StatusOK, resp)
}

// writeError maps engine and ranking errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ranking.ErrInvalidQuery):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrDataUnavailable):
		jsonErr(w, http.StatusServiceUnavailable, engine.ErrDataUnavailable.Error())
	case r.Context().Err() != nil:
		jsonErr(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		slog.Error("api: unexpected error", "path", r.URL.Path, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
