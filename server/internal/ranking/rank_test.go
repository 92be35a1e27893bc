package ranking

import (
	"testing"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

func TestRank(t *testing.T) {
	entries := []types.RankingEntry{
		{Name: "Carla", FinalScore: 5},
		{Name: "bruno", FinalScore: 9},
		{Name: "Ana", FinalScore: 9},
		{Name: "Dino", FinalScore: 0},
	}
	Rank(entries, 2)

	want := []struct {
		name   string
		podium bool
	}{
		{"Ana", true},
		{"bruno", true},
		{"Carla", false},
		{"Dino", false},
	}
	for i, w := range want {
		e := entries[i]
		if e.Name != w.name || e.Rank != i+1 || e.Podium != w.podium {
			t.Errorf("entries[%d] = %s rank %d podium %v, want %s rank %d podium %v",
				i, e.Name, e.Rank, e.Podium, w.name, i+1, w.podium)
		}
	}
}
