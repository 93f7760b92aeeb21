package quiz

// Score is the result of grading an answer map against a question list.
type Score struct {
	Percentage int `json:"percentage"`
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Points     int `json:"points"` // sum of points over correct answers
}

// ComputeScore grades answers. A question is correct only when its recorded
// option equals CorrectIndex; unanswered questions count as incorrect.
func ComputeScore(questions []Question, answers AnswerMap) Score {
	s := Score{Total: len(questions)}
	for _, q := range questions {
		chosen, ok := answers[q.ID]
		if !ok || chosen != q.CorrectIndex {
			continue
		}
		s.Correct++
		s.Points += q.Points
	}
	s.Percentage = percentage(s.Correct, s.Total)
	return s
}

// Passed reports whether the score meets the passing threshold.
func (s Score) Passed(passingScore int) bool {
	return s.Percentage >= passingScore
}

// percentage rounds 100*correct/total half-up using integer arithmetic.
func percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
