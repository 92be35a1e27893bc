package ranking

import (
	"sort"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// Rank sorts entries in place by FinalScore descending, breaking ties by
// name ascending, then assigns 1-based ranks and podium flags for the first
// highlightTop places.
func Rank(entries []types.RankingEntry, highlightTop int) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FinalScore != entries[j].FinalScore {
			return entries[i].FinalScore > entries[j].FinalScore
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Podium = i < highlightTop
	}
}
