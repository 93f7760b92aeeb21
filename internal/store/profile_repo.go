package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/tutorly/internal/quiz"
)

type profileRepo struct {
	db *sql.DB
}

func (r *profileRepo) EnsureUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = "student"
	}
	now := time.Now().UTC()
	query, args := builder.Insert(UsersTable.Name).
		Columns("id", "name", "role", "created_at").
		Values(u.ID, u.Name, u.Role, now).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return r.ensureProfile(ctx, u.ID)
}

func (r *profileRepo) GetUser(ctx context.Context, id string) (*User, error) {
	query, args := builder.Select("id", "name", "role", "created_at").
		From(entsql.Table(UsersTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var u User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *profileRepo) ensureProfile(ctx context.Context, userID string) error {
	query, args := builder.Insert(ProfilesTable.Name).
		Columns("user_id", "points", "level", "updated_at").
		Values(userID, 0, string(quiz.LevelBeginner), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (r *profileRepo) Get(ctx context.Context, userID string) (quiz.Profile, error) {
	if err := r.ensureProfile(ctx, userID); err != nil {
		return quiz.Profile{}, err
	}

	query, args := builder.Select("points", "level").
		From(entsql.Table(ProfilesTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	p := quiz.Profile{UserID: userID}
	var level string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.Points, &level); err != nil {
		return quiz.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Level = quiz.ParseLevel(level)
	return p, nil
}

func (r *profileRepo) Save(ctx context.Context, p quiz.Profile) error {
	query, args := builder.Insert(ProfilesTable.Name).
		Columns("user_id", "points", "level", "updated_at").
		Values(p.UserID, p.Points, string(p.Level), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
