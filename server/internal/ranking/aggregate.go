package ranking

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
)

// ErrInvalidQuery is returned when a Query cannot be resolved to a window.
var ErrInvalidQuery = errors.New("ranking: invalid query")

// Query selects the leaderboard to build.
type Query struct {
	Period types.Period
	// Date is the user-selected day; required for daily and weekly boards.
	Date time.Time
	// Today anchors the monthly window and the "current week" used for
	// weekly totals outside weekly mode.
	Today time.Time
}

// Options carries the configuration that shapes a leaderboard.
// Zero values fall back to the defaults.
type Options struct {
	Rule         correction.Rule
	Goals        types.Goals
	HighlightTop int
	Levels       LevelScale
}

func (o Options) withDefaults() Options {
	if o.Goals == (types.Goals{}) {
		o.Goals = types.DefaultGoals()
	}
	if o.HighlightTop <= 0 {
		o.HighlightTop = types.DefaultHighlightTop
	}
	if o.Levels.XPPerDelivery <= 0 || o.Levels.BaseXP <= 0 {
		o.Levels = DefaultLevelScale()
	}
	return o
}

// accumulator is the running total for one driver during a single pass.
type accumulator struct {
	total       int
	weekly      int
	last        time.Time
	trend       map[time.Time]int
	weeklyTrend map[time.Time]int
}

func newAccumulator() *accumulator {
	return &accumulator{
		trend:       make(map[time.Time]int),
		weeklyTrend: make(map[time.Time]int),
	}
}

// Build normalises docs and aggregates them. Entries skipped during
// normalisation are reported in Leaderboard.Skipped.
func Build(docs []types.TeamDocument, q Query, opts Options) (*types.Leaderboard, error) {
	records, skipped := Normalize(docs)
	lb, err := Aggregate(records, q, opts)
	if err != nil {
		return nil, err
	}
	if skipped.Total() > 0 {
		lb.Skipped = skipped
	}
	return lb, nil
}

// Aggregate folds records into a ranked leaderboard for q.
//
// Records outside the period window only contribute their date (to the
// available and trend dates) and, for daily boards, their driver (so the full
// roster is listed even with zero deliveries on the selected day).
//
// Weekly totals track the week containing q.Today; on weekly boards they track
// the selected week, which is then the same as the window.
func Aggregate(records []types.DeliveryRecord, q Query, opts Options) (*types.Leaderboard, error) {
	if q.Today.IsZero() {
		return nil, fmt.Errorf("%w: today is required", ErrInvalidQuery)
	}
	window, err := period.Resolve(q.Period, q.Date, q.Today)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	opts = opts.withDefaults()

	week := period.Week(q.Today)
	if q.Period == types.PeriodWeekly {
		week = window
	}

	dates := make(map[time.Time]struct{})
	roster := make(map[string]struct{})
	accs := make(map[string]*accumulator)

	for _, r := range records {
		day := period.Day(r.Date)
		dates[day] = struct{}{}
		roster[r.Driver] = struct{}{}

		if !window.Contains(day) {
			continue
		}
		acc, ok := accs[r.Driver]
		if !ok {
			acc = newAccumulator()
			accs[r.Driver] = acc
		}
		acc.total += r.Count
		acc.trend[day] += r.Count
		if week.Contains(day) {
			acc.weekly += r.Count
			acc.weeklyTrend[day] += r.Count
		}
		if day.After(acc.last) {
			acc.last = day
		}
	}

	if q.Period == types.PeriodDaily {
		for name := range roster {
			if _, ok := accs[name]; !ok {
				accs[name] = newAccumulator()
			}
		}
	}

	trendDates := sortedDates(dates)
	weekDates := make([]time.Time, 0, 7)
	for _, d := range trendDates {
		if week.Contains(d) {
			weekDates = append(weekDates, d)
		}
	}
	trendLabels := formatDates(trendDates)

	goal := opts.Goals.For(q.Period)
	entries := make([]types.RankingEntry, 0, len(accs))
	for name, acc := range accs {
		corr := correction.Apply(opts.Rule, name, acc.total)
		entries = append(entries, types.RankingEntry{
			ID:               corr.ID,
			Name:             name,
			Deliveries:       acc.total,
			WeeklyDeliveries: acc.weekly,
			FinalScore:       corr.FinalScore,
			Multiplier:       corr.Multiplier,
			Corrected:        corr.Corrected,
			Trend:            series(trendDates, acc.trend),
			WeeklyTrend:      series(weekDates, acc.weeklyTrend),
			TrendDates:       append([]string(nil), trendLabels...),
			LastUpdate:       period.Format(acc.last),
			Level:            opts.Levels.Level(corr.FinalScore),
			Progress:         Progress(corr.FinalScore, goal),
		})
	}
	Rank(entries, opts.HighlightTop)

	lb := &types.Leaderboard{
		Period:         q.Period,
		Reference:      period.Format(window.Reference),
		Today:          period.Format(period.Day(q.Today)),
		Window:         window.Range(),
		Week:           week.Range(),
		Entries:        entries,
		AvailableDates: reversed(trendLabels),
		TrendDates:     trendLabels,
		WeekDates:      formatDates(weekDates),
		Goal:           goal,
		Goals:          opts.Goals,
		HighlightTop:   opts.HighlightTop,
	}
	for _, e := range entries {
		lb.TeamTotal += e.Deliveries
		lb.TeamFinalTotal += e.FinalScore
	}
	lb.TeamProgress = Progress(lb.TeamFinalTotal, goal)
	if len(entries) > 0 {
		lb.Leader = entries[0].Name
	}
	return lb, nil
}

// AvailableDates returns every valid date observed in docs, newest first.
func AvailableDates(docs []types.TeamDocument) []string {
	records, _ := Normalize(docs)
	set := make(map[time.Time]struct{}, len(records))
	for _, r := range records {
		set[period.Day(r.Date)] = struct{}{}
	}
	return reversed(formatDates(sortedDates(set)))
}

func sortedDates(set map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = period.Format(d)
	}
	return out
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
