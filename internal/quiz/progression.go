package quiz

import "fmt"

// Thresholds are the cumulative point totals that unlock the next level.
type Thresholds struct {
	Intermediate int `mapstructure:"intermediate"`
	Advanced     int `mapstructure:"advanced"`
}

// DefaultThresholds is the standard progression ladder.
var DefaultThresholds = Thresholds{Intermediate: 500, Advanced: 1500}

// Profile is a learner's cumulative standing.
type Profile struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Level  Level  `json:"level"`
}

// Progression describes the effect of a passing attempt on a profile.
type Progression struct {
	Before Profile `json:"before"`
	After  Profile `json:"after"`
}

// LeveledUp reports whether the attempt moved the learner to a new level.
func (p Progression) LeveledUp() bool {
	return p.After.Level != p.Before.Level
}

// Apply adds earned points and advances the level. Each tier is checked
// against the new total, so a single attempt may cross both thresholds.
// Levels never move backwards.
func (t Thresholds) Apply(p Profile, earned int) Progression {
	if !p.Level.Valid() {
		p.Level = LevelBeginner
	}
	next := p
	next.Points = p.Points + earned

	if next.Level == LevelBeginner && next.Points >= t.Intermediate {
		next.Level = LevelIntermediate
	}
	if next.Level == LevelIntermediate && next.Points >= t.Advanced {
		next.Level = LevelAdvanced
	}

	return Progression{Before: p, After: next}
}

// RemedialReason is the human-readable reason attached to a recommendation
// created after a failed attempt.
func RemedialReason(title string, percentage, passingScore int) string {
	return fmt.Sprintf("You scored %d%% on %q (passing score %d%%). Review the lesson and try again.",
		percentage, title, passingScore)
}
