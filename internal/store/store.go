// Package store persists quizzes, attempts, learner standing, exam
// monitoring and LLM usage in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

var builder = entsql.Dialect(dialect.SQLite)

// pragmas are applied by the driver on every new connection.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
}

type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	log *zap.Logger
}

// Open opens (creating if needed) the database file at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, drv: drv, log: zap.NewNop()}, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

// DB exposes the handle for ad hoc queries in tests and tools.
func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.drv.Close() }

// SetLogger sets where repos report rows they had to skip.
func (s *Store) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	s.log = log
}

func (s *Store) QuizRepo() QuizRepo                     { return &quizRepo{db: s.db, log: s.log} }
func (s *Store) ContentRepo() ContentRepo               { return &contentRepo{db: s.db} }
func (s *Store) AttemptRepo() AttemptRepo               { return &attemptRepo{db: s.db} }
func (s *Store) ProfileRepo() ProfileRepo               { return &profileRepo{db: s.db} }
func (s *Store) RecommendationRepo() RecommendationRepo { return &recommendationRepo{db: s.db} }
func (s *Store) ExamSessionRepo() ExamSessionRepo       { return &examSessionRepo{db: s.db} }
func (s *Store) EventRepo() EventRepo                   { return &eventRepo{db: s.db} }

// DefaultDBPath is $TUTORLY_DB when set, otherwise tutorly.db under
// $XDG_DATA_HOME/tutorly (falling back to ~/.local/share/tutorly). The
// parent directory is created.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TUTORLY_DB"); p != "" {
		return p, EnsureDir(p)
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	p := filepath.Join(base, "tutorly", "tutorly.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
