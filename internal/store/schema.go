package store

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions in the same form ent's code generator emits, so the
// ent migrator can create and evolve them.
var (
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "role", Type: field.TypeString, Default: "student"},
		{Name: "created_at", Type: field.TypeTime},
	}
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	ProfilesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeString},
		{Name: "points", Type: field.TypeInt, Default: 0},
		{Name: "level", Type: field.TypeString, Default: "beginner"},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ProfilesTable = &schema.Table{
		Name:       "profiles",
		Columns:    ProfilesColumns,
		PrimaryKey: []*schema.Column{ProfilesColumns[0]},
	}

	CoursesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	CoursesTable = &schema.Table{
		Name:       "courses",
		Columns:    CoursesColumns,
		PrimaryKey: []*schema.Column{CoursesColumns[0]},
	}

	LessonsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "order_index", Type: field.TypeInt, Default: 0},
		{Name: "course_id", Type: field.TypeString},
	}
	LessonsTable = &schema.Table{
		Name:       "lessons",
		Columns:    LessonsColumns,
		PrimaryKey: []*schema.Column{LessonsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "lessons_courses_lessons",
				Columns:    []*schema.Column{LessonsColumns[4]},
				RefColumns: []*schema.Column{CoursesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	QuizzesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeString, Default: "beginner"},
		{Name: "passing_score", Type: field.TypeInt, Default: 70},
		{Name: "lesson_id", Type: field.TypeString},
	}
	QuizzesTable = &schema.Table{
		Name:       "quizzes",
		Columns:    QuizzesColumns,
		PrimaryKey: []*schema.Column{QuizzesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "quizzes_lessons_quizzes",
				Columns:    []*schema.Column{QuizzesColumns[4]},
				RefColumns: []*schema.Column{LessonsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647},
		{Name: "options", Type: field.TypeString, Size: 2147483647},
		{Name: "correct_index", Type: field.TypeInt},
		{Name: "points", Type: field.TypeInt, Default: 10},
		{Name: "order_index", Type: field.TypeInt, Default: 0},
		{Name: "quiz_id", Type: field.TypeString},
	}
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "questions_quizzes_questions",
				Columns:    []*schema.Column{QuestionsColumns[6]},
				RefColumns: []*schema.Column{QuizzesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "question_quiz_id_order_index",
				Columns: []*schema.Column{QuestionsColumns[6], QuestionsColumns[5]},
			},
		},
	}

	EnrollmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "enrolled_at", Type: field.TypeTime},
	}
	EnrollmentsTable = &schema.Table{
		Name:       "enrollments",
		Columns:    EnrollmentsColumns,
		PrimaryKey: []*schema.Column{EnrollmentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "enrollment_user_id_course_id",
				Unique:  true,
				Columns: []*schema.Column{EnrollmentsColumns[1], EnrollmentsColumns[2]},
			},
		},
	}

	AttemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "score", Type: field.TypeInt},
		{Name: "correct_count", Type: field.TypeInt},
		{Name: "total_count", Type: field.TypeInt},
		{Name: "points", Type: field.TypeInt, Default: 0},
		{Name: "elapsed_seconds", Type: field.TypeInt},
		{Name: "passed", Type: field.TypeBool},
		{Name: "variant", Type: field.TypeString},
		{Name: "trigger", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	AttemptsTable = &schema.Table{
		Name:       "attempts",
		Columns:    AttemptsColumns,
		PrimaryKey: []*schema.Column{AttemptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "attempt_user_id_created_at",
				Columns: []*schema.Column{AttemptsColumns[1], AttemptsColumns[11]},
			},
		},
	}

	ExamSessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "ended_at", Type: field.TypeTime, Nullable: true},
		{Name: "tab_switch_count", Type: field.TypeInt, Default: 0},
		{Name: "fullscreen_exit_count", Type: field.TypeInt, Default: 0},
		{Name: "flagged", Type: field.TypeBool, Default: false},
		{Name: "flag_reason", Type: field.TypeString, Nullable: true},
		{Name: "active", Type: field.TypeBool, Default: true},
	}
	ExamSessionsTable = &schema.Table{
		Name:       "exam_sessions",
		Columns:    ExamSessionsColumns,
		PrimaryKey: []*schema.Column{ExamSessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "examsession_user_id_active",
				Columns: []*schema.Column{ExamSessionsColumns[1], ExamSessionsColumns[9]},
			},
		},
	}

	RecommendationsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString, Default: ""},
		{Name: "priority", Type: field.TypeInt},
		{Name: "reason", Type: field.TypeString, Size: 2147483647},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "dismissed_at", Type: field.TypeTime, Nullable: true},
	}
	RecommendationsTable = &schema.Table{
		Name:       "recommendations",
		Columns:    RecommendationsColumns,
		PrimaryKey: []*schema.Column{RecommendationsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "recommendation_user_id_priority",
				Columns: []*schema.Column{RecommendationsColumns[1], RecommendationsColumns[4]},
			},
		},
	}

	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	LLMRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
	}

	// Tables holds every table, in dependency order.
	Tables = []*schema.Table{
		UsersTable,
		ProfilesTable,
		CoursesTable,
		LessonsTable,
		QuizzesTable,
		QuestionsTable,
		EnrollmentsTable,
		AttemptsTable,
		ExamSessionsTable,
		RecommendationsTable,
		LLMRequestEventsTable,
	}
)

func init() {
	LessonsTable.ForeignKeys[0].RefTable = CoursesTable
	QuizzesTable.ForeignKeys[0].RefTable = LessonsTable
	QuestionsTable.ForeignKeys[0].RefTable = QuizzesTable
}

// migrate creates missing tables and columns.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}
