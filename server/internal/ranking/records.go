package ranking

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
)

// Reasons a raw entry is skipped during normalisation.
const (
	SkipBadDate       = "bad_date"
	SkipBadCount      = "bad_count"
	SkipNegativeCount = "negative_count"
	SkipEmptyDriver   = "empty_driver"
)

// Skipped counts rejected raw entries by reason.
type Skipped map[string]int

// Total returns the number of skipped entries across all reasons.
func (s Skipped) Total() int {
	var n int
	for _, v := range s {
		n += v
	}
	return n
}

// Normalize flattens team documents into validated records. Entries with an
// unparseable date, an empty driver name, or a count that is negative,
// fractional or non-numeric are skipped individually; the rest of the batch
// is kept. A null count is treated like an absent one and contributes zero.
//
// Output order is deterministic: team ID, then date, then driver name.
func Normalize(docs []types.TeamDocument) ([]types.DeliveryRecord, Skipped) {
	skipped := Skipped{}
	var out []types.DeliveryRecord

	ordered := append([]types.TeamDocument(nil), docs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, doc := range ordered {
		for _, dateKey := range sortedKeys(doc.Days) {
			drivers := doc.Days[dateKey]
			date, err := period.ParseDate(strings.TrimSpace(dateKey))
			if err != nil {
				skipped[SkipBadDate] += len(drivers)
				continue
			}
			for _, rawName := range sortedKeys(drivers) {
				name := correction.CanonicalName(rawName)
				if name == "" {
					skipped[SkipEmptyDriver]++
					continue
				}
				count, reason := parseCount(drivers[rawName])
				if reason != "" {
					skipped[reason]++
					continue
				}
				out = append(out, types.DeliveryRecord{
					TeamID: doc.ID,
					Date:   date,
					Driver: name,
					Count:  count,
				})
			}
		}
	}
	return out, skipped
}

// parseCount converts an untyped count into a non-negative int. It returns a
// skip reason when the value cannot be used.
func parseCount(v any) (int, string) {
	switch n := v.(type) {
	case nil:
		return 0, ""
	case int:
		return checkSign(int64(n))
	case int32:
		return checkSign(int64(n))
	case int64:
		return checkSign(n)
	case uint32:
		return int(n), ""
	case uint64:
		if n > math.MaxInt32 {
			return 0, SkipBadCount
		}
		return int(n), ""
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return checkSign(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0, SkipBadCount
		}
		return fromFloat(f)
	case string:
		return fromString(n)
	case []byte:
		return fromString(string(n))
	default:
		return 0, SkipBadCount
	}
}

func fromString(s string) (int, string) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, SkipBadCount
	}
	return checkSign(i)
}

func checkSign(i int64) (int, string) {
	switch {
	case i < 0:
		return 0, SkipNegativeCount
	case i > math.MaxInt32:
		return 0, SkipBadCount
	default:
		return int(i), ""
	}
}

func fromFloat(f float64) (int, string) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, SkipBadCount
	}
	if f < 0 {
		return 0, SkipNegativeCount
	}
	if f > math.MaxInt32 {
		return 0, SkipBadCount
	}
	return int(f), ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
