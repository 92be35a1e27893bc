package types

import (
	"fmt"
	"strings"
	"time"
)

// Period is the aggregation window kind.
type Period string

// Supported periods.
const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps a user-supplied string to a Period. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// DateLayout is the wire format of every calendar date (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// TeamDocument is one team's raw delivery log as held by the external store:
// date string -> driver name -> count. Counts are left untyped because the
// store is schemaless; validation happens during normalisation.
type TeamDocument struct {
	ID   string
	Days map[string]map[string]any
}

// DeliveryRecord is a single validated (team, day, driver, count) tuple.
// Date is always midnight UTC of the calendar day.
type DeliveryRecord struct {
	TeamID string
	Date   time.Time
	Driver string
	Count  int
}

// Goals maps each period to the delivery target shown by goal meters.
type Goals struct {
	Daily   int `json:"daily" yaml:"daily"`
	Weekly  int `json:"weekly" yaml:"weekly"`
	Monthly int `json:"monthly" yaml:"monthly"`
}

// DefaultGoals returns the stock targets: 20 a day, 130 a week, 600 a month.
func DefaultGoals() Goals {
	return Goals{Daily: 20, Weekly: 130, Monthly: 600}
}

// For returns the goal for p, or 0 for an unknown period.
func (g Goals) For(p Period) int {
	switch p {
	case PeriodDaily:
		return g.Daily
	case PeriodWeekly:
		return g.Weekly
	case PeriodMonthly:
		return g.Monthly
	default:
		return 0
	}
}

// DefaultHighlightTop is the number of podium-eligible ranks.
const DefaultHighlightTop = 5

// RankingEntry is one driver's line in a leaderboard.
//
// Deliveries is the raw total; FinalScore is the corrected value used for
// ordering and progress. Trend is aligned to Leaderboard.TrendDates and
// WeeklyTrend to Leaderboard.WeekDates; TrendDates is repeated on the entry so
// a single entry can be charted on its own.
type RankingEntry struct {
	ID               string   `json:"id"`
	Rank             int      `json:"rank"`
	Name             string   `json:"name"`
	Deliveries       int      `json:"deliveries"`
	WeeklyDeliveries int      `json:"weeklyDeliveries"`
	FinalScore       int      `json:"finalScore"`
	Multiplier       float64  `json:"multiplier"`
	Corrected        bool     `json:"corrected"`
	Trend            []int    `json:"trend"`
	WeeklyTrend      []int    `json:"weeklyTrend"`
	TrendDates       []string `json:"trendDates"`
	LastUpdate       string   `json:"lastUpdate,omitempty"`
	Level            int      `json:"level"`
	Progress         float64  `json:"progress"`
	Podium           bool     `json:"podium"`
}

// Range is an inclusive pair of calendar dates. End is empty when the range
// has no upper bound.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
	Label string `json:"label,omitempty"`
}

// Leaderboard is the complete output of one aggregation pass.
type Leaderboard struct {
	Period         Period         `json:"period"`
	Reference      string         `json:"reference"`
	Today          string         `json:"today"`
	Window         Range          `json:"window"`
	Week           Range          `json:"week"`
	Entries        []RankingEntry `json:"entries"`
	AvailableDates []string       `json:"availableDates"`
	TrendDates     []string       `json:"trendDates"`
	WeekDates      []string       `json:"weekDates"`
	Goal           int            `json:"goal"`
	Goals          Goals          `json:"goals"`
	HighlightTop   int            `json:"highlightTop"`
	TeamTotal      int            `json:"teamTotal"`
	TeamFinalTotal int            `json:"teamFinalTotal"`
	TeamProgress   float64        `json:"teamProgress"`
	Leader         string         `json:"leader,omitempty"`
	Skipped        map[string]int `json:"skipped,omitempty"`
}

// Find returns the entry for name, if present.
func (lb *Leaderboard) Find(name string) (RankingEntry, bool) {
	for _, e := range lb.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return RankingEntry{}, false
}
