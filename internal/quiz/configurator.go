package quiz

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"
)

// CountAll selects the whole pool in its authored order.
const CountAll = 0

// presetCounts is the bounded menu of subset sizes offered before a session.
var presetCounts = []int{5, 10, 15, 20}

// CountOption is one entry of the question-count menu.
type CountOption struct {
	Value int    `json:"value"` // CountAll or a preset size
	Label string `json:"label"`
}

// CountOptions returns the preset sizes that fit in the pool followed by the
// "all" option, which is always present.
func CountOptions(poolSize int) []CountOption {
	opts := make([]CountOption, 0, len(presetCounts)+1)
	for _, n := range presetCounts {
		if n <= poolSize {
			opts = append(opts, CountOption{Value: n, Label: fmt.Sprintf("%d questions", n)})
		}
	}
	opts = append(opts, CountOption{Value: CountAll, Label: fmt.Sprintf("All (%d)", poolSize)})
	return opts
}

// BuildQuestions materializes the ordered question list for a session.
//
// CountAll (or any count <= 0) returns the pool in display order. Otherwise
// the whole pool is Fisher-Yates shuffled with rng and truncated to
// min(count, len(pool)). Counts larger than the pool clamp silently.
func BuildQuestions(pool []Question, count int, rng *rand.Rand) ([]Question, error) {
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}

	out := make([]Question, len(pool))
	copy(out, pool)

	if count <= CountAll {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
		return out, nil
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	if count > len(out) {
		count = len(out)
	}
	return out[:count], nil
}

// Deadline returns start + minutes when the timer is enabled. A disabled
// timer, or a non-positive duration, yields no deadline.
func Deadline(start time.Time, enabled bool, minutes int) (time.Time, bool) {
	if !enabled || minutes <= 0 {
		return time.Time{}, false
	}
	return start.Add(time.Duration(minutes) * 60 * time.Second), true
}
