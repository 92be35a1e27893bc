package ranking

import (
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// series maps each date to its count in byDate, zero-filling gaps, so the
// result is index-aligned with dates.
func series(dates []time.Time, byDate map[time.Time]int) []int {
	out := make([]int, len(dates))
	for i, d := range dates {
		out[i] = byDate[d]
	}
	return out
}

// TrendTail keeps only the last n points of the entry's trend and its dates.
// Weekly series are left untouched. n <= 0 or n >= len(trend) returns a copy
// of the full series.
func TrendTail(e types.RankingEntry, n int) types.RankingEntry {
	e.Trend = tail(e.Trend, n)
	e.TrendDates = tail(e.TrendDates, n)
	return e
}

// Tail applies TrendTail to every entry of lb and trims lb.TrendDates to
// match. lb is not modified.
func Tail(lb *types.Leaderboard, n int) *types.Leaderboard {
	out := *lb
	out.TrendDates = tail(lb.TrendDates, n)
	out.Entries = make([]types.RankingEntry, len(lb.Entries))
	for i, e := range lb.Entries {
		out.Entries[i] = TrendTail(e, n)
	}
	return &out
}

func tail[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return append([]T(nil), s...)
	}
	return append([]T(nil), s[len(s)-n:]...)
}
