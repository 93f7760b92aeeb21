// Package content reads course files and imports them into the store.
//
// A file holds one or more courses:
//
//	courses:
//	  - id: biology-101
//	    title: Biology 101
//	    lessons:
//	      - id: cells
//	        title: Cells
//	        quizzes:
//	          - id: cells-quiz
//	            title: Cells
//	            difficulty: beginner
//	            passing_score: 70
//	            questions:
//	              - id: q1
//	                prompt: Which organelle makes ATP?
//	                options: [Nucleus, Mitochondrion, Ribosome]
//	                correct: 1
//	                points: 10
//
// Question options may use any shape quiz.NormalizeOptions accepts.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/store"
)

type file struct {
	Courses []courseDoc `yaml:"courses"`
}

type courseDoc struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Lessons     []lessonDoc `yaml:"lessons"`
}

type lessonDoc struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title"`
	Content string    `yaml:"content"`
	Quizzes []quizDoc `yaml:"quizzes"`
}

type quizDoc struct {
	ID           string        `yaml:"id"`
	Title        string        `yaml:"title"`
	Difficulty   string        `yaml:"difficulty"`
	PassingScore *int          `yaml:"passing_score"`
	Questions    []questionDoc `yaml:"questions"`
}

type questionDoc struct {
	ID      string `yaml:"id"`
	Prompt  string `yaml:"prompt"`
	Options any    `yaml:"options"`
	Correct int    `yaml:"correct"`
	Points  *int   `yaml:"points"`
}

const (
	defaultPassingScore = 70
	defaultPoints       = 10
)

// ErrInvalid wraps every decode and validation failure.
var ErrInvalid = errors.New("invalid content")

// Parse decodes and validates a course file. Lesson and question order
// follow their position in the file.
func Parse(r io.Reader) ([]store.Course, error) {
	courses, err := parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return courses, nil
}

func parse(r io.Reader) ([]store.Course, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("content file is empty")
		}
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if len(f.Courses) == 0 {
		return nil, errors.New("content file defines no courses")
	}

	var courses []store.Course
	for _, c := range f.Courses {
		if c.ID == "" || c.Title == "" {
			return nil, fmt.Errorf("course %q: id and title are required", c.ID)
		}
		course := store.Course{ID: c.ID, Title: c.Title, Description: c.Description}
		for li, l := range c.Lessons {
			lesson, err := convertLesson(l, li+1)
			if err != nil {
				return nil, fmt.Errorf("course %s: %w", c.ID, err)
			}
			course.Lessons = append(course.Lessons, lesson)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func convertLesson(l lessonDoc, order int) (store.Lesson, error) {
	if l.ID == "" {
		return store.Lesson{}, fmt.Errorf("lesson %d: id is required", order)
	}
	lesson := store.Lesson{ID: l.ID, Title: l.Title, Content: l.Content, Order: order}
	for _, q := range l.Quizzes {
		qc, err := convertQuiz(q, l.ID)
		if err != nil {
			return store.Lesson{}, fmt.Errorf("lesson %s: %w", l.ID, err)
		}
		lesson.Quizzes = append(lesson.Quizzes, qc)
	}
	return lesson, nil
}

func convertQuiz(q quizDoc, lessonID string) (store.QuizContent, error) {
	if q.ID == "" {
		return store.QuizContent{}, errors.New("quiz id is required")
	}
	passing := defaultPassingScore
	if q.PassingScore != nil {
		passing = *q.PassingScore
	}
	if passing < 0 || passing > 100 {
		return store.QuizContent{}, fmt.Errorf("quiz %s: passing_score %d out of range", q.ID, passing)
	}
	level := quiz.Level(q.Difficulty)
	if q.Difficulty == "" {
		level = quiz.LevelBeginner
	}
	if !level.Valid() {
		return store.QuizContent{}, fmt.Errorf("quiz %s: unknown difficulty %q", q.ID, q.Difficulty)
	}

	qc := store.QuizContent{Definition: quiz.Definition{
		ID:           q.ID,
		Title:        q.Title,
		LessonID:     lessonID,
		Difficulty:   level,
		PassingScore: passing,
	}}
	for i, doc := range q.Questions {
		question, err := convertQuestion(doc, i+1)
		if err != nil {
			return store.QuizContent{}, fmt.Errorf("quiz %s: %w", q.ID, err)
		}
		qc.Questions = append(qc.Questions, question)
	}
	return qc, nil
}

func convertQuestion(doc questionDoc, order int) (quiz.Question, error) {
	raw, err := json.Marshal(doc.Options)
	if err != nil {
		return quiz.Question{}, fmt.Errorf("question %s: %w", doc.ID, err)
	}
	options, err := quiz.NormalizeOptions(raw)
	if err != nil {
		return quiz.Question{}, fmt.Errorf("question %s: %w", doc.ID, err)
	}
	points := defaultPoints
	if doc.Points != nil {
		points = *doc.Points
	}

	q := quiz.Question{
		ID:           doc.ID,
		Prompt:       doc.Prompt,
		Options:      options,
		CorrectIndex: doc.Correct,
		Points:       points,
		Order:        order,
	}
	if err := q.Validate(); err != nil {
		return quiz.Question{}, fmt.Errorf("question %d: %w", order, err)
	}
	return q, nil
}

// Importer writes parsed content through a ContentRepo.
type Importer struct {
	repo store.ContentRepo
}

func NewImporter(repo store.ContentRepo) *Importer {
	return &Importer{repo: repo}
}

// Import parses r and upserts everything in one transaction.
func (i *Importer) Import(ctx context.Context, r io.Reader) (store.ImportResult, error) {
	courses, err := Parse(r)
	if err != nil {
		return store.ImportResult{}, err
	}
	return i.repo.Import(ctx, courses)
}

// ImportFile is Import for a path on disk.
func (i *Importer) ImportFile(ctx context.Context, path string) (store.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.ImportResult{}, err
	}
	defer f.Close()
	return i.Import(ctx, f)
}
