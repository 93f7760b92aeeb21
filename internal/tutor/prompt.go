package tutor

import (
	"fmt"
	"strings"
)

const tutorSystemPrompt = `You are a patient, encouraging tutor on an online learning platform. Explain ideas step by step in plain language, check understanding with a short question when it helps, and never just hand over quiz answers. Keep replies under 250 words unless the learner asks for more detail.`

const analyzeSystemPrompt = `You are a learning analyst. Read the learner's conversation or results and identify what they understand, where the gaps are, and what to study next. Be specific and concise.`

// analysisSchema is the structured reply requested in analyze mode.
var analysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{
			"type":        "string",
			"description": "Two or three sentences on the learner's current understanding.",
		},
		"weak_topics": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"next_steps": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []any{"summary", "weak_topics", "next_steps"},
	"additionalProperties": false,
}

type analysis struct {
	Summary    string   `json:"summary"`
	WeakTopics []string `json:"weak_topics"`
	NextSteps  []string `json:"next_steps"`
}

// render turns an analysis into the plain text returned to callers.
func (a analysis) render() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Summary))

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n\n%s:", title)
		for _, item := range items {
			fmt.Fprintf(&b, "\n- %s", strings.TrimSpace(item))
		}
	}
	section("Topics to review", a.WeakTopics)
	section("Next steps", a.NextSteps)
	return b.String()
}
