package api

import (
	"fmt"
	"sort"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
)

// DiagnosticHint is one human-readable note about a leaderboard, shown next
// to it so operators can tell "no deliveries" from "bad data".
type DiagnosticHint struct {
	// Key is a stable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning".
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

var skipDetails = map[string]string{
	ranking.SkipBadDate:       "entries were filed under a date that is not YYYY-MM-DD and were left out of every period",
	ranking.SkipBadCount:      "entries had a count that is not a whole number and were ignored",
	ranking.SkipNegativeCount: "entries had a negative count and were ignored",
	ranking.SkipEmptyDriver:   "entries had an empty driver name and were ignored",
}

// computeDiagnostics derives hints from lb, warnings first.
func computeDiagnostics(lb *types.Leaderboard) []DiagnosticHint {
	hints := []DiagnosticHint{}

	reasons := make([]string, 0, len(lb.Skipped))
	for reason := range lb.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		n := lb.Skipped[reason]
		v := float64(n)
		detail, ok := skipDetails[reason]
		if !ok {
			detail = "entries were ignored"
		}
		hints = append(hints, DiagnosticHint{
			Key:    "skipped_" + reason,
			Level:  "warning",
			Title:  fmt.Sprintf("%d skipped", n),
			Detail: fmt.Sprintf("%d raw %s. Fix them in the source to have them counted.", n, detail),
			Value:  &v,
		})
	}

	if lb.TeamTotal == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "no_deliveries",
			Level:  "info",
			Title:  "No deliveries",
			Detail: fmt.Sprintf("Nothing was delivered in %s.", windowText(lb)),
		})
		return hints
	}

	var corrected int
	for _, e := range lb.Entries {
		if e.Corrected {
			corrected++
		}
	}
	if corrected > 0 {
		v := float64(lb.TeamTotal - lb.TeamFinalTotal)
		hints = append(hints, DiagnosticHint{
			Key:   "corrections_applied",
			Level: "info",
			Title: fmt.Sprintf("%d corrected", corrected),
			Detail: fmt.Sprintf("%d drivers are ranked on a corrected score; the team total drops from %d to %d.",
				corrected, lb.TeamTotal, lb.TeamFinalTotal),
			Value: &v,
		})
	}

	if lb.TeamProgress >= 100 {
		v := lb.TeamProgress
		hints = append(hints, DiagnosticHint{
			Key:    "goal_reached",
			Level:  "ok",
			Title:  "Goal reached",
			Detail: fmt.Sprintf("The team reached its %s goal of %d deliveries.", lb.Period, lb.Goal),
			Value:  &v,
		})
	}
	return hints
}

func windowText(lb *types.Leaderboard) string {
	if lb.Window.Label != "" {
		return lb.Window.Label
	}
	return "the selected period"
}
