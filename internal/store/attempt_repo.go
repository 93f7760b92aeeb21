package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type attemptRepo struct {
	db *sql.DB
}

func (r *attemptRepo) Create(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query, args := builder.Insert(AttemptsTable.Name).
		Columns("id", "user_id", "quiz_id", "score", "correct_count", "total_count",
			"points", "elapsed_seconds", "passed", "variant", "trigger", "created_at").
		Values(a.ID, a.UserID, a.QuizID, a.Score, a.CorrectCount, a.TotalCount,
			a.Points, a.ElapsedSeconds, a.Passed, a.Variant, a.Trigger, a.CreatedAt.UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string, opts QueryOpts) ([]Attempt, error) {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UTC()))
	}
	sel := builder.Select("id", "user_id", "quiz_id", "score", "correct_count", "total_count",
		"points", "elapsed_seconds", "passed", "variant", "trigger", "created_at").
		From(entsql.Table(AttemptsTable.Name)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.CorrectCount, &a.TotalCount,
			&a.Points, &a.ElapsedSeconds, &a.Passed, &a.Variant, &a.Trigger, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *attemptRepo) Stats(ctx context.Context, userID string) (*AttemptStats, error) {
	t := entsql.Table(AttemptsTable.Name)
	query, args := builder.Select(
		entsql.Count("*"),
		"COALESCE(SUM(passed), 0)",
		"COALESCE(AVG(score), 0)",
		"COALESCE(MAX(score), 0)",
	).
		From(t).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var st AttemptStats
	if err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&st.Attempts, &st.Passed, &st.AvgScore, &st.BestScore); err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	return &st, nil
}
