package ranking

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
)

func day(s string) time.Time {
	t, err := period.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func doc(days map[string]map[string]any) []types.TeamDocument {
	return []types.TeamDocument{{ID: "team", Days: days}}
}

// history spans two weeks of January 2024 for three drivers.
func history() []types.TeamDocument {
	return []types.TeamDocument{
		{ID: "north", Days: map[string]map[string]any{
			"2023-12-31": {"Ana": 4},
			"2024-01-01": {"Ana": 5, "Bruno": 3},
			"2024-01-03": {"Ana": 2, "Carla": 6},
			"2024-01-07": {"Bruno": 8},
			"2024-01-08": {"Ana": 1, "Rui Varela": 10},
		}},
		{ID: "south", Days: map[string]map[string]any{
			"2024-01-03": {"Bruno": 4},
			"2024-01-05": {"Rui Varela": 20},
			"2024-01-09": {"Carla": 9},
		}},
	}
}

func ruleSet(t *testing.T) *correction.Table {
	t.Helper()
	tbl, err := correction.New([]correction.Entry{{Name: "Rui Varela", Multiplier: 0.8}})
	if err != nil {
		t.Fatalf("correction.New: %v", err)
	}
	return tbl
}

func TestAggregate_ScenarioA(t *testing.T) {
	lb, err := Build(doc(map[string]map[string]any{"2024-01-01": {"Ana": 5}}),
		Query{Period: types.PeriodDaily, Date: day("2024-01-01"), Today: day("2024-01-01")}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(lb.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(lb.Entries))
	}
	e := lb.Entries[0]
	if e.Name != "Ana" || e.Deliveries != 5 || e.FinalScore != 5 || e.Rank != 1 {
		t.Errorf("entry = %+v", e)
	}
	if e.ID != "driver:Ana" || e.Corrected {
		t.Errorf("uncorrected entry has id %q corrected=%v", e.ID, e.Corrected)
	}
	if lb.Leader != "Ana" || lb.TeamTotal != 5 {
		t.Errorf("leader = %q total = %d", lb.Leader, lb.TeamTotal)
	}
}

func TestAggregate_ScenarioB(t *testing.T) {
	days := map[string]map[string]any{}
	for i := 1; i <= 10; i++ {
		days[period.Format(day("2024-01-01").AddDate(0, 0, i-1))] = map[string]any{"Rui Varela": 10}
	}
	lb, err := Build(doc(days), Query{Period: types.PeriodMonthly, Today: day("2024-01-20")}, Options{Rule: ruleSet(t)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e, ok := lb.Find("Rui Varela")
	if !ok {
		t.Fatal("Rui Varela missing")
	}
	if e.Deliveries != 100 || e.FinalScore != 80 {
		t.Errorf("deliveries = %d finalScore = %d, want 100 / 80", e.Deliveries, e.FinalScore)
	}
	if !e.Corrected || e.ID != "corrected:Rui Varela" || e.Multiplier != 0.8 {
		t.Errorf("entry = %+v", e)
	}
	if lb.TeamTotal != 100 || lb.TeamFinalTotal != 80 {
		t.Errorf("team totals = %d / %d", lb.TeamTotal, lb.TeamFinalTotal)
	}
}

func TestAggregate_ScenarioC(t *testing.T) {
	days := map[string]map[string]any{
		"2024-01-01": {"Ana": 1, "Bruno": 2},
		"2024-01-02": {"Ana": 3},
		"2024-01-04": {"Bruno": 4},
		"2024-01-07": {"Ana": 5, "Bruno": 6},
		"2024-01-08": {"Ana": 100},
	}
	wantWeek := map[string]int{"Ana": 9, "Bruno": 12}
	for _, ref := range []string{"2024-01-01", "2024-01-04", "2024-01-07"} {
		t.Run(ref, func(t *testing.T) {
			lb, err := Build(doc(days), Query{Period: types.PeriodWeekly, Date: day(ref), Today: day("2024-03-15")}, Options{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if lb.Window.Start != "2024-01-01" || lb.Window.End != "2024-01-07" {
				t.Errorf("window = %+v", lb.Window)
			}
			for name, want := range wantWeek {
				e, ok := lb.Find(name)
				if !ok {
					t.Fatalf("%s missing", name)
				}
				if e.WeeklyDeliveries != want || e.Deliveries != want {
					t.Errorf("%s weekly = %d deliveries = %d, want %d", name, e.WeeklyDeliveries, e.Deliveries, want)
				}
			}
		})
	}
}

func TestAggregate_ScenarioD(t *testing.T) {
	lb, err := Build(history(), Query{Period: types.PeriodDaily, Date: day("2024-01-07"), Today: day("2024-01-09")}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(lb.Entries) != 4 {
		t.Fatalf("entries = %d, want full roster of 4", len(lb.Entries))
	}
	if lb.Entries[0].Name != "Bruno" || lb.Entries[0].Deliveries != 8 {
		t.Errorf("leader = %+v", lb.Entries[0])
	}
	for _, name := range []string{"Ana", "Carla", "Rui Varela"} {
		e, ok := lb.Find(name)
		if !ok {
			t.Fatalf("%s missing from roster", name)
		}
		if e.Deliveries != 0 || e.LastUpdate != "" {
			t.Errorf("%s = %+v, want zero deliveries", name, e)
		}
	}
}

func TestAggregate_Properties(t *testing.T) {
	queries := []Query{
		{Period: types.PeriodDaily, Date: day("2024-01-03"), Today: day("2024-01-09")},
		{Period: types.PeriodWeekly, Date: day("2024-01-03"), Today: day("2024-01-09")},
		{Period: types.PeriodWeekly, Date: day("2024-01-09"), Today: day("2024-01-09")},
		{Period: types.PeriodMonthly, Today: day("2024-01-09")},
		{Period: types.PeriodMonthly, Today: day("2023-12-31")},
	}
	for _, q := range queries {
		t.Run(string(q.Period)+"/"+period.Format(q.Date), func(t *testing.T) {
			lb, err := Build(history(), q, Options{Rule: ruleSet(t)})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			monday, sunday := day(lb.Week.Start), day(lb.Week.End)
			for _, d := range lb.WeekDates {
				if dd := day(d); dd.Before(monday) || dd.After(sunday) {
					t.Errorf("week date %s outside %s..%s", d, lb.Week.Start, lb.Week.End)
				}
			}
			for i, e := range lb.Entries {
				if got := sum(e.Trend); got != e.Deliveries {
					t.Errorf("%s: sum(trend) = %d, deliveries = %d", e.Name, got, e.Deliveries)
				}
				if got := sum(e.WeeklyTrend); got != e.WeeklyDeliveries {
					t.Errorf("%s: sum(weeklyTrend) = %d, weekly = %d", e.Name, got, e.WeeklyDeliveries)
				}
				if len(e.Trend) != len(lb.TrendDates) || len(e.WeeklyTrend) != len(lb.WeekDates) {
					t.Errorf("%s: series not aligned", e.Name)
				}
				if e.FinalScore > e.Deliveries {
					t.Errorf("%s: finalScore %d > deliveries %d", e.Name, e.FinalScore, e.Deliveries)
				}
				if !e.Corrected && e.FinalScore != e.Deliveries {
					t.Errorf("%s: uncorrected finalScore %d != %d", e.Name, e.FinalScore, e.Deliveries)
				}
				if e.Rank != i+1 {
					t.Errorf("%s: rank = %d, want %d", e.Name, e.Rank, i+1)
				}
				if i > 0 {
					prev := lb.Entries[i-1]
					if prev.FinalScore < e.FinalScore || (prev.FinalScore == e.FinalScore && prev.Name > e.Name) {
						t.Errorf("order broken between %s and %s", prev.Name, e.Name)
					}
				}
			}
		})
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	q := Query{Period: types.PeriodMonthly, Today: day("2024-01-09")}
	var outs [][]byte
	for i := 0; i < 2; i++ {
		lb, err := Build(history(), q, Options{Rule: ruleSet(t)})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		b, err := json.Marshal(lb)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		outs = append(outs, b)
	}
	if !bytes.Equal(outs[0], outs[1]) {
		t.Errorf("outputs differ:\n%s\n%s", outs[0], outs[1])
	}
}

func TestAggregate_Metadata(t *testing.T) {
	lb, err := Build(history(), Query{Period: types.PeriodMonthly, Today: day("2024-01-09")}, Options{HighlightTop: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantDates := []string{"2024-01-09", "2024-01-08", "2024-01-07", "2024-01-05", "2024-01-03", "2024-01-01", "2023-12-31"}
	if len(lb.AvailableDates) != len(wantDates) {
		t.Fatalf("available = %v", lb.AvailableDates)
	}
	for i := range wantDates {
		if lb.AvailableDates[i] != wantDates[i] {
			t.Errorf("available[%d] = %s, want %s", i, lb.AvailableDates[i], wantDates[i])
		}
	}
	if lb.TrendDates[0] != "2023-12-31" {
		t.Errorf("trend dates not ascending: %v", lb.TrendDates)
	}
	if got := len(lb.WeekDates); got != 2 {
		t.Errorf("week dates = %v, want the two dates of the week of 2024-01-09", lb.WeekDates)
	}
	// December deliveries fall outside the January window.
	if e, _ := lb.Find("Ana"); e.Deliveries != 8 {
		t.Errorf("Ana monthly = %d, want 8", e.Deliveries)
	}
	if lb.Goal != 600 || lb.HighlightTop != 2 {
		t.Errorf("goal = %d highlightTop = %d", lb.Goal, lb.HighlightTop)
	}
	podium := 0
	for _, e := range lb.Entries {
		if e.Podium {
			podium++
		}
	}
	if podium != 2 {
		t.Errorf("podium = %d, want 2", podium)
	}
	if lb.Skipped != nil {
		t.Errorf("skipped = %v, want nil", lb.Skipped)
	}
}

func TestAggregate_TieBreakByName(t *testing.T) {
	lb, err := Build(doc(map[string]map[string]any{"2024-01-01": {"Zé": 3, "Ana": 3, "Bruno": 3}}),
		Query{Period: types.PeriodDaily, Date: day("2024-01-01"), Today: day("2024-01-01")}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"Ana", "Bruno", "Zé"}
	for i, name := range want {
		if lb.Entries[i].Name != name {
			t.Errorf("entries[%d] = %s, want %s", i, lb.Entries[i].Name, name)
		}
	}
}

func TestAggregate_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"missing today", Query{Period: types.PeriodMonthly}},
		{"daily without date", Query{Period: types.PeriodDaily, Today: day("2024-01-01")}},
		{"weekly without date", Query{Period: types.PeriodWeekly, Today: day("2024-01-01")}},
		{"unknown period", Query{Period: "yearly", Today: day("2024-01-01")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aggregate(nil, tc.q, Options{})
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("err = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	lb, err := Aggregate(nil, Query{Period: types.PeriodMonthly, Today: day("2024-01-09")}, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if lb.Entries == nil || len(lb.Entries) != 0 || lb.Leader != "" || lb.TeamProgress != 0 {
		t.Errorf("empty board = %+v", lb)
	}
}

func TestAvailableDates(t *testing.T) {
	got := AvailableDates(history())
	if len(got) != 7 || got[0] != "2024-01-09" || got[6] != "2023-12-31" {
		t.Errorf("AvailableDates = %v", got)
	}
}

func sum(xs []int) int {
	var n int
	for _, x := range xs {
		n += x
	}
	return n
}
