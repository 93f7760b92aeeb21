package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type recommendationRepo struct {
	db *sql.DB
}

func (r *recommendationRepo) Create(ctx context.Context, rec *Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query, args := builder.Insert(RecommendationsTable.Name).
		Columns("id", "user_id", "lesson_id", "quiz_id", "priority", "reason", "created_at").
		Values(rec.ID, rec.UserID, rec.LessonID, rec.QuizID, rec.Priority, rec.Reason, rec.CreatedAt.UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepo) ListActive(ctx context.Context, userID string) ([]Recommendation, error) {
	query, args := builder.Select("id", "user_id", "lesson_id", "quiz_id", "priority", "reason", "created_at").
		From(entsql.Table(RecommendationsTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.IsNull("dismissed_at"),
		)).
		OrderBy(entsql.Desc("priority"), entsql.Desc("created_at")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.LessonID, &rec.QuizID,
			&rec.Priority, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recommendationRepo) Dismiss(ctx context.Context, userID, id string) error {
	query, args := builder.Update(RecommendationsTable.Name).
		Set("dismissed_at", time.Now().UTC()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
			entsql.IsNull("dismissed_at"),
		)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("dismiss recommendation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	return nil
}
