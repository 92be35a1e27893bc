package correction

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ID prefixes tag each entry so consumers can badge corrected drivers.
const (
	IDPrefix       = "corrected:"
	DriverIDPrefix = "driver:"
)

// DefaultMultiplier applies to every driver not listed in a Table.
const DefaultMultiplier = 1.0

// Rule maps a canonical driver name to a multiplier. ok is false when the
// driver is not subject to correction.
type Rule interface {
	Multiplier(name string) (factor float64, ok bool)
}

// Entry is one configured correction.
type Entry struct {
	Name       string  `yaml:"name" json:"name"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Table is an immutable Rule built from configuration. It is safe for
// concurrent use.
type Table struct {
	factors map[string]float64
	names   []string
}

// New validates entries and builds a Table. Multipliers must lie in (0, 1]
// so a corrected score never exceeds the raw total.
func New(entries []Entry) (*Table, error) {
	t := &Table{factors: make(map[string]float64, len(entries))}
	for i, e := range entries {
		name := CanonicalName(e.Name)
		if name == "" {
			return nil, fmt.Errorf("correction[%d]: name is required", i)
		}
		if math.IsNaN(e.Multiplier) || e.Multiplier <= 0 || e.Multiplier > 1 {
			return nil, fmt.Errorf("correction[%d] %q: multiplier %v must be in (0, 1]", i, name, e.Multiplier)
		}
		k := foldKey(name)
		if prev, dup := t.factors[k]; dup && prev != e.Multiplier {
			return nil, fmt.Errorf("correction[%d] %q: conflicting multipliers %v and %v", i, name, prev, e.Multiplier)
		} else if dup {
			continue
		}
		t.factors[k] = e.Multiplier
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// Multiplier implements Rule.
func (t *Table) Multiplier(name string) (float64, bool) {
	if t == nil {
		return DefaultMultiplier, false
	}
	f, ok := t.factors[foldKey(CanonicalName(name))]
	if !ok {
		return DefaultMultiplier, false
	}
	return f, true
}

// Len returns the number of corrected identities.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.factors)
}

// Names returns the corrected identities in ascending order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.names...)
}

// Result is the outcome of applying a Rule to one driver.
type Result struct {
	ID         string
	FinalScore int
	Multiplier float64
	Corrected  bool
}

// Apply computes the corrected score for name: round(deliveries * multiplier),
// rounding half away from zero. A nil rule leaves every score unchanged.
func Apply(r Rule, name string, deliveries int) Result {
	factor, ok := DefaultMultiplier, false
	if r != nil {
		factor, ok = r.Multiplier(name)
	}
	if !ok {
		return Result{ID: DriverIDPrefix + name, FinalScore: deliveries, Multiplier: DefaultMultiplier}
	}
	return Result{
		ID:         IDPrefix + name,
		FinalScore: int(math.Round(float64(deliveries) * factor)),
		Multiplier: factor,
		Corrected:  true,
	}
}

// CanonicalName normalises a raw driver name: NFC composition, trimmed, with
// inner whitespace runs collapsed to a single space. Case is preserved.
func CanonicalName(raw string) string {
	return strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
}

// foldKey is the case-insensitive lookup key for a canonical name. A Caser
// is stateful, so one is built per call.
func foldKey(name string) string {
	return cases.Fold().String(name)
}
