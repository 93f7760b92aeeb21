package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/store"
)

const biology = `
courses:
  - id: bio-101
    title: Biology 101
    lessons:
      - id: cells
        title: Cells
        quizzes:
          - id: cells-quiz
            title: Cells
            difficulty: intermediate
            questions:
              - id: q1
                prompt: Which organelle makes ATP?
                options: [Nucleus, Mitochondrion, Ribosome]
                correct: 1
              - id: q2
                prompt: Plants have cell walls.
                options:
                  a: "True"
                  b: "False"
                correct: 0
                points: 5
      - id: genes
        title: Genes
`

func TestParse(t *testing.T) {
	courses, err := Parse(strings.NewReader(biology))
	require.NoError(t, err)
	require.Len(t, courses, 1)

	c := courses[0]
	require.Len(t, c.Lessons, 2)
	assert.Equal(t, 1, c.Lessons[0].Order)
	assert.Equal(t, 2, c.Lessons[1].Order)

	qc := c.Lessons[0].Quizzes[0]
	assert.Equal(t, "cells", qc.LessonID)
	assert.Equal(t, quiz.LevelIntermediate, qc.Difficulty)
	assert.Equal(t, 70, qc.PassingScore)

	require.Len(t, qc.Questions, 2)
	assert.Equal(t, []string{"Nucleus", "Mitochondrion", "Ribosome"}, qc.Questions[0].Options)
	assert.Equal(t, 10, qc.Questions[0].Points)
	assert.Equal(t, []string{"True", "False"}, qc.Questions[1].Options)
	assert.Equal(t, 5, qc.Questions[1].Points)
	assert.Equal(t, 2, qc.Questions[1].Order)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty"},
		{"no courses", "courses: []", "no courses"},
		{"unknown field", "courses:\n  - id: a\n    title: A\n    colour: red\n", "colour"},
		{"bad difficulty", quizWith("difficulty: expert", "options: [a, b]\n    correct: 0"), "difficulty"},
		{"one option", quizWith("", "options: [a]\n    correct: 0"), "at least 2 options"},
		{"correct out of range", quizWith("", "options: [a, b]\n    correct: 2"), "out of range"},
		{"passing score", quizWith("passing_score: 120", "options: [a, b]\n    correct: 0"), "passing_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func quizWith(quizField, question string) string {
	return fmt.Sprintf(`courses:
  - id: c
    title: C
    lessons:
      - id: l
        quizzes:
          - id: qz
            title: Q
            %s
            questions:
              - id: q1
                prompt: P
                %s
`, quizField, strings.ReplaceAll(question, "\n    ", "\n                "))
}

func TestImporter_ImportFile(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tutorly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	path := filepath.Join(dir, "bio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(biology), 0o644))

	imp := NewImporter(st.ContentRepo())
	ctx := context.Background()

	res, err := imp.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, store.ImportResult{Courses: 1, Lessons: 2, Quizzes: 1, Questions: 2}, res)

	// Re-importing upserts instead of duplicating.
	_, err = imp.ImportFile(ctx, path)
	require.NoError(t, err)

	questions, err := st.QuizRepo().Questions(ctx, "cells-quiz")
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	def, err := st.QuizRepo().GetQuiz(ctx, "cells-quiz")
	require.NoError(t, err)
	assert.Equal(t, "cells", def.LessonID)
}
