package store

import (
	"context"
	"time"

	"github.com/abhisek/tutorly/internal/quiz"
)

// QueryOpts configures list queries.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
}

// QuizSummary is a quiz row with its question count, for listings.
type QuizSummary struct {
	quiz.Definition
	QuestionCount int
}

// QuizRepo reads quiz content.
type QuizRepo interface {
	// GetQuiz returns the quiz definition, or ErrNotFound.
	GetQuiz(ctx context.Context, id string) (*quiz.Definition, error)

	// ListQuizzes returns every quiz with its pool size.
	ListQuizzes(ctx context.Context) ([]QuizSummary, error)

	// Questions returns the quiz's pool ordered by display order.
	// Option payloads are normalized on the way out.
	Questions(ctx context.Context, quizID string) ([]quiz.Question, error)
}

// Course, Lesson and QuizContent describe importable content.
type Course struct {
	ID          string
	Title       string
	Description string
	Lessons     []Lesson
}

type Lesson struct {
	ID      string
	Title   string
	Content string
	Order   int
	Quizzes []QuizContent
}

type QuizContent struct {
	quiz.Definition
	Questions []quiz.Question
}

// ImportResult counts rows written by an import.
type ImportResult struct {
	Courses   int `json:"courses"`
	Lessons   int `json:"lessons"`
	Quizzes   int `json:"quizzes"`
	Questions int `json:"questions"`
}

// ContentRepo writes course content. Rows are upserted by id.
type ContentRepo interface {
	Import(ctx context.Context, courses []Course) (ImportResult, error)
	Enroll(ctx context.Context, userID, courseID string) error
}

// Attempt is an immutable record of one scored submission.
type Attempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	QuizID         string    `json:"quiz_id"`
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	TotalCount     int       `json:"total_count"`
	Points         int       `json:"points"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Passed         bool      `json:"passed"`
	Variant        string    `json:"variant"`
	Trigger        string    `json:"trigger"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttemptStats aggregates a user's attempts.
type AttemptStats struct {
	Attempts  int     `json:"attempts"`
	Passed    int     `json:"passed"`
	AvgScore  float64 `json:"avg_score"`
	BestScore int     `json:"best_score"`
}

// AttemptRepo stores attempt records. Attempts are write-once.
type AttemptRepo interface {
	Create(ctx context.Context, a *Attempt) error
	ListByUser(ctx context.Context, userID string, opts QueryOpts) ([]Attempt, error)
	Stats(ctx context.Context, userID string) (*AttemptStats, error)
}

// User is a local account. Role is "student" or "admin".
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileRepo reads and writes learner standing.
type ProfileRepo interface {
	// EnsureUser creates the user and a beginner profile if absent.
	EnsureUser(ctx context.Context, u User) error

	GetUser(ctx context.Context, id string) (*User, error)

	// Get returns the profile, creating a zeroed beginner profile on first use.
	Get(ctx context.Context, userID string) (quiz.Profile, error)

	Save(ctx context.Context, p quiz.Profile) error
}

// Recommendation points a learner back at a lesson.
type Recommendation struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LessonID    string     `json:"lesson_id"`
	QuizID      string     `json:"quiz_id"`
	Priority    int        `json:"priority"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
}

// RecommendationRepo stores remedial recommendations.
type RecommendationRepo interface {
	Create(ctx context.Context, r *Recommendation) error

	// ListActive returns undismissed recommendations, highest priority first.
	ListActive(ctx context.Context, userID string) ([]Recommendation, error)

	// Dismiss hides a recommendation. Returns ErrNotFound when the id does
	// not belong to the user.
	Dismiss(ctx context.Context, userID, id string) error
}

// Violation kinds recorded against an exam session.
const (
	ViolationTabSwitch      = "tab_switch"
	ViolationFullscreenExit = "fullscreen_exit"
)

// ExamSession is the persisted record of a secure exam.
type ExamSession struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	QuizID              string     `json:"quiz_id"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	TabSwitchCount      int        `json:"tab_switch_count"`
	FullscreenExitCount int        `json:"fullscreen_exit_count"`
	Flagged             bool       `json:"flagged"`
	FlagReason          string     `json:"flag_reason"`
	Active              bool       `json:"active"`
}

// ViolationCounts is the state of both counters after an increment.
type ViolationCounts struct {
	TabSwitches     int
	FullscreenExits int
}

// Total is the pooled count compared against the flag threshold.
func (c ViolationCounts) Total() int { return c.TabSwitches + c.FullscreenExits }

// ExamSessionRepo stores secure exam sessions.
type ExamSessionRepo interface {
	Create(ctx context.Context, e *ExamSession) error
	Get(ctx context.Context, id string) (*ExamSession, error)

	// IncrementViolation atomically bumps one counter and returns both.
	IncrementViolation(ctx context.Context, id, kind string) (ViolationCounts, error)

	// Flag marks the session flagged. The first reason wins.
	Flag(ctx context.Context, id, reason string) error

	// Close sets the end time and clears the active flag.
	Close(ctx context.Context, id string, endedAt time.Time) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM events by a grouping key.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
