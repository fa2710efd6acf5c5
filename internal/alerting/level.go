package alerting

import "fmt"

// Level is the ordinal severity of the height gap, 0 (nominal) to 5 (most severe).
type Level int

const (
	// LevelNominal means the gap is below every threshold
	LevelNominal Level = 0
	// MaxLevel is the most severe level
	MaxLevel Level = 5
)

// String returns the string representation of Level
func (l Level) String() string {
	if l == LevelNominal {
		return "nominal"
	}
	return fmt.Sprintf("level_%d", int(l))
}

// Valid reports whether l is within 0..MaxLevel
func (l Level) Valid() bool {
	return l >= LevelNominal && l <= MaxLevel
}

// Thresholds is the ordered table of minimum height differences.
// Index i holds the threshold of level i+1.
type Thresholds [MaxLevel]int64

// NewThresholds builds a table from the level 1..5 thresholds.
func NewThresholds(t1, t2, t3, t4, t5 int64) Thresholds {
	return Thresholds{t1, t2, t3, t4, t5}
}

// For returns the threshold of a level in 1..MaxLevel.
func (t Thresholds) For(level Level) int64 {
	return t[level-1]
}

// Ascending reports whether the thresholds strictly increase from level 1 to level 5.
func (t Thresholds) Ascending() bool {
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return false
		}
	}
	return true
}

// Classify maps a height difference to an alert level.
//
// Levels are checked from the most severe down and the first level whose
// threshold is <= diff wins, so a misordered table still yields the highest
// satisfied level. Below every threshold the level is LevelNominal.
func (t Thresholds) Classify(diff int64) Level {
	for level := MaxLevel; level > LevelNominal; level-- {
		if diff >= t.For(level) {
			return level
		}
	}
	return LevelNominal
}
