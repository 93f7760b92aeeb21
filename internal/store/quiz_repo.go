package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/quiz"
)

type quizRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func (r *quizRepo) GetQuiz(ctx context.Context, id string) (*quiz.Definition, error) {
	query, args := builder.Select("id", "title", "lesson_id", "difficulty", "passing_score").
		From(entsql.Table(QuizzesTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		d     quiz.Definition
		level string
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&d.ID, &d.Title, &d.LessonID, &level, &d.PassingScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	d.Difficulty = quiz.ParseLevel(level)
	return &d, nil
}

func (r *quizRepo) ListQuizzes(ctx context.Context) ([]QuizSummary, error) {
	q := entsql.Table(QuizzesTable.Name)
	qs := entsql.Table(QuestionsTable.Name).As("qs")
	query, args := builder.Select(
		q.C("id"), q.C("title"), q.C("lesson_id"), q.C("difficulty"), q.C("passing_score"),
		entsql.Count(qs.C("id")),
	).
		From(q).
		LeftJoin(qs).On(q.C("id"), qs.C("quiz_id")).
		GroupBy(q.C("id")).
		OrderBy(q.C("title")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []QuizSummary
	for rows.Next() {
		var (
			s     QuizSummary
			level string
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.LessonID, &level, &s.PassingScore, &s.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		s.Difficulty = quiz.ParseLevel(level)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Questions returns the pool in display order. Rows whose options cannot be
// normalized, or that fail validation, are skipped with a warning so scoring
// never sees them.
func (r *quizRepo) Questions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	query, args := builder.Select("id", "prompt", "options", "correct_index", "points", "order_index").
		From(entsql.Table(QuestionsTable.Name)).
		Where(entsql.EQ("quiz_id", quizID)).
		OrderBy("order_index", "id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var (
		out     []quiz.Question
		skipped int
	)
	for rows.Next() {
		var (
			q   quiz.Question
			raw string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &raw, &q.CorrectIndex, &q.Points, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		opts, err := quiz.NormalizeOptions(json.RawMessage(raw))
		if err == nil {
			q.Options = opts
			err = q.Validate()
		}
		if err != nil {
			skipped++
			r.log.Warn("skipping invalid question",
				zap.String("quiz_id", quizID),
				zap.String("question_id", q.ID),
				zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if skipped > 0 {
		r.log.Warn("question pool has invalid rows",
			zap.String("quiz_id", quizID),
			zap.Int("skipped", skipped),
			zap.Int("usable", len(out)))
	}
	return out, nil
}

type contentRepo struct {
	db *sql.DB
}

func (r *contentRepo) Import(ctx context.Context, courses []Course) (ImportResult, error) {
	var res ImportResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range courses {
		if err := upsert(ctx, tx, builder.Insert(CoursesTable.Name).
			Columns("id", "title", "description", "created_at").
			Values(c.ID, c.Title, c.Description, now)); err != nil {
			return res, fmt.Errorf("course %s: %w", c.ID, err)
		}
		res.Courses++

		for _, l := range c.Lessons {
			if err := upsert(ctx, tx, builder.Insert(LessonsTable.Name).
				Columns("id", "title", "content", "order_index", "course_id").
				Values(l.ID, l.Title, l.Content, l.Order, c.ID)); err != nil {
				return res, fmt.Errorf("lesson %s: %w", l.ID, err)
			}
			res.Lessons++

			for _, q := range l.Quizzes {
				n, err := importQuiz(ctx, tx, l.ID, q)
				if err != nil {
					return res, fmt.Errorf("quiz %s: %w", q.ID, err)
				}
				res.Quizzes++
				res.Questions += n
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

// importQuiz upserts the quiz row and replaces its question pool.
func importQuiz(ctx context.Context, tx *sql.Tx, lessonID string, q QuizContent) (int, error) {
	level := q.Difficulty
	if !level.Valid() {
		level = quiz.LevelBeginner
	}
	if err := upsert(ctx, tx, builder.Insert(QuizzesTable.Name).
		Columns("id", "title", "difficulty", "passing_score", "lesson_id").
		Values(q.ID, q.Title, string(level), q.PassingScore, lessonID)); err != nil {
		return 0, err
	}

	query, args := builder.Delete(QuestionsTable.Name).Where(entsql.EQ("quiz_id", q.ID)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}

	for _, qu := range q.Questions {
		opts, err := json.Marshal(qu.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options: %w", err)
		}
		query, args := builder.Insert(QuestionsTable.Name).
			Columns("id", "prompt", "options", "correct_index", "points", "order_index", "quiz_id").
			Values(qu.ID, qu.Prompt, string(opts), qu.CorrectIndex, qu.Points, qu.Order, q.ID).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("question %s: %w", qu.ID, err)
		}
	}
	return len(q.Questions), nil
}

func upsert(ctx context.Context, tx *sql.Tx, ins *entsql.InsertBuilder) error {
	query, args := ins.
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (r *contentRepo) Enroll(ctx context.Context, userID, courseID string) error {
	query, args := builder.Insert(EnrollmentsTable.Name).
		Columns("user_id", "course_id", "enrolled_at").
		Values(userID, courseID, time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("user_id", "course_id"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	return nil
}
