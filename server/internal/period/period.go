package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// ErrDateRequired is returned when a daily or weekly window is requested
// without a selected date.
var ErrDateRequired = errors.New("period: selected date is required")

// labelLayout renders week boundaries as dd/MM/yyyy.
const labelLayout = "02/01/2006"

// Window is a resolved, inclusive range of calendar days.
// A zero End means the window has no upper bound.
type Window struct {
	Kind      types.Period
	Reference time.Time
	Start     time.Time
	End       time.Time
}

// Day strips the time of day from t, keeping the calendar date as seen in
// t's own location, and returns it as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalised day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period: parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a day as YYYY-MM-DD. The zero time renders as "".
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(types.DateLayout)
}

// WeekOf returns the Monday and Sunday of the week containing d.
func WeekOf(d time.Time) (monday, sunday time.Time) {
	d = Day(d)
	wd := int(d.Weekday())
	diff := 1 - wd
	if d.Weekday() == time.Sunday {
		diff = -6
	}
	monday = d.AddDate(0, 0, diff)
	return monday, monday.AddDate(0, 0, 6)
}

// Week returns the Monday..Sunday window containing d.
func Week(d time.Time) Window {
	mon, sun := WeekOf(d)
	return Window{Kind: types.PeriodWeekly, Reference: Day(d), Start: mon, End: sun}
}

// Resolve builds the window for kind. selected anchors daily and weekly
// windows; today anchors the monthly window.
func Resolve(kind types.Period, selected, today time.Time) (Window, error) {
	switch kind {
	case types.PeriodDaily:
		if selected.IsZero() {
			return Window{}, ErrDateRequired
		}
		d := Day(selected)
		return Window{Kind: kind, Reference: d, Start: d, End: d}, nil

	case types.PeriodWeekly:
		if selected.IsZero() {
			return Window{}, ErrDateRequired
		}
		return Week(selected), nil

	case types.PeriodMonthly:
		ref := Day(today)
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return Window{Kind: kind, Reference: ref, Start: first, End: last}, nil

	default:
		return Window{}, fmt.Errorf("period: unknown kind %q", kind)
	}
}

// Contains reports whether the calendar day of d falls inside the window.
func (w Window) Contains(d time.Time) bool {
	d = Day(d)
	if d.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || !d.After(w.End)
}

// Label renders the window for display: a single date for one-day windows,
// "dd/MM/yyyy - dd/MM/yyyy" otherwise.
func (w Window) Label() string {
	if w.Start.IsZero() {
		return ""
	}
	if w.End.Equal(w.Start) {
		return w.Start.Format(labelLayout)
	}
	if w.End.IsZero() {
		return w.Start.Format(labelLayout) + " -"
	}
	return w.Start.Format(labelLayout) + " - " + w.End.Format(labelLayout)
}

// Range converts the window to its wire representation.
func (w Window) Range() types.Range {
	return types.Range{Start: Format(w.Start), End: Format(w.End), Label: w.Label()}
}
