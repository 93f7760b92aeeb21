package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// examSessionRepo persists secure exam sessions.
//
// Violation counters use raw SQL outside the builder: the increment and the
// read of both counters happen in one UPDATE ... RETURNING statement, so two
// writers can never lose an update.
type examSessionRepo struct {
	db *sql.DB
}

func (r *examSessionRepo) Create(ctx context.Context, e *ExamSession) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	e.Active = true
	query, args := builder.Insert(ExamSessionsTable.Name).
		Columns("id", "user_id", "quiz_id", "started_at", "tab_switch_count",
			"fullscreen_exit_count", "flagged", "active").
		Values(e.ID, e.UserID, e.QuizID, e.StartedAt.UTC(), 0, 0, false, true).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert exam session: %w", err)
	}
	return nil
}

func (r *examSessionRepo) Get(ctx context.Context, id string) (*ExamSession, error) {
	query, args := builder.Select("id", "user_id", "quiz_id", "started_at", "ended_at",
		"tab_switch_count", "fullscreen_exit_count", "flagged", "flag_reason", "active").
		From(entsql.Table(ExamSessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		e      ExamSession
		ended  sql.NullTime
		reason sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.UserID, &e.QuizID, &e.StartedAt,
		&ended, &e.TabSwitchCount, &e.FullscreenExitCount, &e.Flagged, &reason, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exam session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam session: %w", err)
	}
	if ended.Valid {
		t := ended.Time
		e.EndedAt = &t
	}
	e.FlagReason = reason.String
	return &e, nil
}

func (r *examSessionRepo) IncrementViolation(ctx context.Context, id, kind string) (ViolationCounts, error) {
	var tab, fs int
	switch kind {
	case ViolationTabSwitch:
		tab = 1
	case ViolationFullscreenExit:
		fs = 1
	default:
		return ViolationCounts{}, fmt.Errorf("unknown violation kind %q", kind)
	}

	var c ViolationCounts
	err := r.db.QueryRowContext(ctx,
		`UPDATE exam_sessions
		 SET tab_switch_count = tab_switch_count + ?, fullscreen_exit_count = fullscreen_exit_count + ?
		 WHERE id = ?
		 RETURNING tab_switch_count, fullscreen_exit_count`,
		tab, fs, id,
	).Scan(&c.TabSwitches, &c.FullscreenExits)
	if errors.Is(err, sql.ErrNoRows) {
		return ViolationCounts{}, fmt.Errorf("exam session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ViolationCounts{}, fmt.Errorf("increment violation: %w", err)
	}
	return c, nil
}

func (r *examSessionRepo) Flag(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE exam_sessions SET flagged = 1, flag_reason = COALESCE(flag_reason, ?) WHERE id = ?`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("flag exam session: %w", err)
	}
	return nil
}

func (r *examSessionRepo) Close(ctx context.Context, id string, endedAt time.Time) error {
	query, args := builder.Update(ExamSessionsTable.Name).
		Set("ended_at", endedAt.UTC()).
		Set("active", false).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("ended_at"))).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("close exam session: %w", err)
	}
	return nil
}
