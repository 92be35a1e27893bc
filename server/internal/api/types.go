package api

import (
	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/store"
)

// RankingResponse is the payload for GET /api/v1/ranking.
type RankingResponse struct {
	*types.Leaderboard
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// DatesResponse is the payload for GET /api/v1/dates.
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// GoalsResponse is the payload for GET /api/v1/goals.
type GoalsResponse struct {
	Goals        types.Goals `json:"goals"`
	HighlightTop int         `json:"highlightTop"`
}

// SelectionResponse is the payload for GET and PUT /api/v1/selection.
type SelectionResponse struct {
	Selection  store.Selection `json:"selection"`
	Requested  store.Selection `json:"requested"`
	Generation uint64          `json:"generation"`
	Pending    bool            `json:"pending"`
}

// LeaderboardResponse is the payload for GET /api/v1/leaderboard.
type LeaderboardResponse struct {
	Selection   store.Selection    `json:"selection"`
	Generation  uint64             `json:"generation"`
	Pending     bool               `json:"pending"`
	UpdatedAt   string             `json:"updatedAt"` // RFC3339
	Leaderboard *types.Leaderboard `json:"leaderboard"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string             `json:"status"`
	Source      string             `json:"source"`
	Breaker     string             `json:"breaker"`
	Today       string             `json:"today"`
	Corrections int                `json:"corrections"`
	Selection   store.Selection    `json:"selection"`
	BoardError  string             `json:"boardError,omitempty"`
	Counters    map[string]float64 `json:"counters"`
}

type errorResponse struct {
	Error string `json:"error"`
}
