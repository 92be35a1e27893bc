package ranking

import "math"

// Default level scale: 10 XP per delivery, 100 XP to go from level 1 to 2,
// each following step twice the previous one.
const (
	DefaultXPPerDelivery = 10
	DefaultBaseXP        = 100
)

// LevelScale converts scores into experience levels.
type LevelScale struct {
	XPPerDelivery int `yaml:"xp_per_delivery"`
	BaseXP        int `yaml:"base_xp"`
}

// DefaultLevelScale returns the stock scale.
func DefaultLevelScale() LevelScale {
	return LevelScale{XPPerDelivery: DefaultXPPerDelivery, BaseXP: DefaultBaseXP}
}

// Level returns the level reached with score deliveries. Level 1 is the
// floor; reaching level n+1 needs BaseXP * (2^n - 1) total XP.
func (s LevelScale) Level(score int) int {
	if s.XPPerDelivery <= 0 || s.BaseXP <= 0 {
		s = DefaultLevelScale()
	}
	if score <= 0 {
		return 1
	}
	xp := int64(score) * int64(s.XPPerDelivery)
	level := 1
	step := int64(s.BaseXP)
	cumulative := step
	for xp >= cumulative {
		level++
		if step > math.MaxInt64/4 {
			break
		}
		step *= 2
		cumulative += step
	}
	return level
}

// Progress returns score as a percentage of goal, capped at 100 and rounded
// to one decimal. A non-positive goal yields 0.
func Progress(score, goal int) float64 {
	if goal <= 0 || score <= 0 {
		return 0
	}
	pct := float64(score) / float64(goal) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*10) / 10
}
