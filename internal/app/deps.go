package app

import (
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
)

// Deps is everything the terminal client needs from the command layer.
type Deps struct {
	UserID string
	Store  *store.Store
	Tutor  screen.Tutor
	Policy session.Policy

	Publisher session.Publisher
	Logger    *zap.Logger
}

func (d Deps) recorderDeps(notify func(session.Event)) session.RecorderDeps {
	return session.RecorderDeps{
		Attempts:        d.Store.AttemptRepo(),
		Profiles:        d.Store.ProfileRepo(),
		Recommendations: d.Store.RecommendationRepo(),
		Exams:           d.Store.ExamSessionRepo(),
		Publisher:       d.Publisher,
		Logger:          d.Logger,
		OnEvent:         notify,
	}
}

func (d Deps) env(sink session.Sink, fs session.FullscreenRequester, notify func(session.Event)) *screen.Env {
	policy := d.Policy
	return &screen.Env{
		UserID:          d.UserID,
		Quizzes:         d.Store.QuizRepo(),
		Profiles:        d.Store.ProfileRepo(),
		Attempts:        d.Store.AttemptRepo(),
		Recommendations: d.Store.RecommendationRepo(),
		Sink:            sink,
		Tutor:           d.Tutor,
		Fullscreen:      fs,
		Logger:          d.Logger,
		Policy:          func() session.Policy { return policy },
		Notify:          notify,
	}
}
