package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tutor"
)

type quizSummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	LessonID      string     `json:"lesson_id"`
	Difficulty    quiz.Level `json:"difficulty"`
	PassingScore  int        `json:"passing_score"`
	QuestionCount int        `json:"question_count"`
}

func (s *Server) listQuizzes(c *gin.Context) {
	rows, err := s.deps.Quizzes.ListQuizzes(c.Request.Context())
	if err != nil {
		s.fromError(c, err)
		return
	}
	out := make([]quizSummary, 0, len(rows))
	for _, q := range rows {
		out = append(out, quizSummary{
			ID:            q.ID,
			Title:         q.Title,
			LessonID:      q.LessonID,
			Difficulty:    q.Difficulty,
			PassingScore:  q.PassingScore,
			QuestionCount: q.QuestionCount,
		})
	}
	ok(c, out)
}

func (s *Server) getQuiz(c *gin.Context) {
	ctx := c.Request.Context()
	def, err := s.deps.Quizzes.GetQuiz(ctx, c.Param("id"))
	if err != nil {
		s.fromError(c, err)
		return
	}
	pool, err := s.deps.Quizzes.Questions(ctx, def.ID)
	if err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, gin.H{
		"quiz": quizSummary{
			ID:            def.ID,
			Title:         def.Title,
			LessonID:      def.LessonID,
			Difficulty:    def.Difficulty,
			PassingScore:  def.PassingScore,
			QuestionCount: len(pool),
		},
		"count_menu": quiz.CountOptions(len(pool)),
	})
}

type startRequest struct {
	Count        int  `json:"count" binding:"gte=0"`
	TimerEnabled bool `json:"timer_enabled"`
	TimerMinutes int  `json:"timer_minutes" binding:"gte=0"`
	Secure       bool `json:"secure"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.TimerEnabled && req.TimerMinutes <= 0 {
		badRequest(c, "timer_minutes must be positive when the timer is enabled")
		return
	}

	ctx := c.Request.Context()
	def, err := s.deps.Quizzes.GetQuiz(ctx, c.Param("id"))
	if err != nil {
		s.fromError(c, err)
		return
	}
	pool, err := s.deps.Quizzes.Questions(ctx, def.ID)
	if err != nil {
		s.fromError(c, err)
		return
	}

	variant := session.VariantQuiz
	if req.Secure {
		variant = session.VariantExam
	}
	sess, err := s.sessions.Start(session.Options{
		UserID:  c.GetString(ctxUserID),
		Quiz:    *def,
		Pool:    pool,
		Variant: variant,
		Policy:  *s.policy.Load(),
		Clock:   s.clock,
		Sink:    s.deps.Sink,
		Logger:  s.log,
	}, session.Config{
		Count:        req.Count,
		TimerEnabled: req.TimerEnabled,
		TimerMinutes: req.TimerMinutes,
	})
	if err != nil {
		s.fromError(c, err)
		return
	}
	created(c, sess.View())
}

// lookup resolves :id for the caller, writing the error response on
// failure.
func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"), c.GetString(ctxUserID), isAdmin(c))
	if err != nil {
		s.fromError(c, err)
		return nil, false
	}
	// A missed timer callback never leaves an overdue session open.
	sess.CheckDeadline()
	return sess, true
}

func (s *Server) getSession(c *gin.Context) {
	sess, found := s.lookup(c)
	if !found {
		return
	}
	ok(c, sess.View())
}

type answerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	OptionIndex *int   `json:"option_index" binding:"required"`
}

func (s *Server) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, found := s.lookup(c)
	if !found {
		return
	}
	if err := sess.SelectAnswer(req.QuestionID, *req.OptionIndex); err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, sess.View())
}

type navigateRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (s *Server) navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dir, valid := session.ParseDirection(req.Direction)
	if !valid {
		badRequest(c, "direction must be next or prev")
		return
	}
	sess, found := s.lookup(c)
	if !found {
		return
	}
	if _, err := sess.Navigate(dir); err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, sess.View())
}

type signalRequest struct {
	Signal string `json:"signal" binding:"required"`
}

func (s *Server) signal(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sig, err := session.ParseSignal(req.Signal)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, found := s.lookup(c)
	if !found {
		return
	}
	outcome, err := sess.Signal(sig)
	if err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, gin.H{"outcome": outcome, "session": sess.View()})
}

func (s *Server) submit(c *gin.Context) {
	sess, found := s.lookup(c)
	if !found {
		return
	}
	if _, err := sess.Submit(); err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, sess.View())
}

// retryRequest fields are optional; omitted ones keep the previous value.
type retryRequest struct {
	Count        *int  `json:"count" binding:"omitempty,gte=0"`
	TimerEnabled *bool `json:"timer_enabled"`
	TimerMinutes *int  `json:"timer_minutes" binding:"omitempty,gte=0"`
}

func (s *Server) retry(c *gin.Context) {
	var req retryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	adjust := func(cfg *session.Config) {
		if req.Count != nil {
			cfg.Count = *req.Count
		}
		if req.TimerEnabled != nil {
			cfg.TimerEnabled = *req.TimerEnabled
		}
		if req.TimerMinutes != nil {
			cfg.TimerMinutes = *req.TimerMinutes
		}
	}

	sess, err := s.sessions.Retry(c.Param("id"), c.GetString(ctxUserID), isAdmin(c), adjust)
	if err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, sess.View())
}

func (s *Server) abandon(c *gin.Context) {
	if err := s.sessions.Abandon(c.Param("id"), c.GetString(ctxUserID), isAdmin(c)); err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, gin.H{"id": c.Param("id"), "phase": "abandoned"})
}

func (s *Server) profile(c *gin.Context) {
	ctx := c.Request.Context()
	uid := subject(c)
	p, err := s.deps.Profiles.Get(ctx, uid)
	if err != nil {
		s.fromError(c, err)
		return
	}
	data := gin.H{"profile": p}
	if s.deps.Attempts != nil {
		stats, err := s.deps.Attempts.Stats(ctx, uid)
		if err != nil {
			s.fromError(c, err)
			return
		}
		data["stats"] = stats
	}
	ok(c, data)
}

func (s *Server) attempts(c *gin.Context) {
	if s.deps.Attempts == nil {
		ok(c, []store.Attempt{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return
	}
	rows, err := s.deps.Attempts.ListByUser(c.Request.Context(), subject(c), store.QueryOpts{Limit: limit})
	if err != nil {
		s.fromError(c, err)
		return
	}
	if rows == nil {
		rows = []store.Attempt{}
	}
	ok(c, rows)
}

func (s *Server) recommendations(c *gin.Context) {
	if s.deps.Recommendations == nil {
		ok(c, []store.Recommendation{})
		return
	}
	rows, err := s.deps.Recommendations.ListActive(c.Request.Context(), subject(c))
	if err != nil {
		s.fromError(c, err)
		return
	}
	if rows == nil {
		rows = []store.Recommendation{}
	}
	ok(c, rows)
}

func (s *Server) dismissRecommendation(c *gin.Context) {
	if s.deps.Recommendations == nil {
		s.fromError(c, store.ErrNotFound)
		return
	}
	if err := s.deps.Recommendations.Dismiss(c.Request.Context(), subject(c), c.Param("id")); err != nil {
		s.fromError(c, err)
		return
	}
	ok(c, gin.H{"id": c.Param("id"), "dismissed": true})
}

type chatRequest struct {
	Messages []llm.Message `json:"messages" binding:"required,min=1"`
	Mode     string        `json:"mode"`
}

func (s *Server) chat(c *gin.Context) {
	if s.deps.Tutor == nil {
		fail(c, http.StatusServiceUnavailable, tutor.ErrUnavailable.Error())
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	mode, err := tutor.ParseMode(req.Mode)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	for _, m := range req.Messages {
		if !m.Role.Valid() {
			badRequest(c, "message role must be user or assistant")
			return
		}
	}

	reply, err := s.deps.Tutor.Complete(c.Request.Context(), req.Messages, mode)
	if err != nil {
		if errors.Is(err, tutor.ErrRateLimited) || errors.Is(err, tutor.ErrUnavailable) {
			s.log.Warn("tutor request failed", zap.String("user_id", c.GetString(ctxUserID)), zap.Error(err))
		}
		s.fromError(c, err)
		return
	}
	ok(c, gin.H{"reply": reply, "mode": mode})
}

func (s *Server) importContent(c *gin.Context) {
	if s.deps.Importer == nil {
		fail(c, http.StatusServiceUnavailable, "content import is not configured")
		return
	}
	res, err := s.deps.Importer.Import(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.fromError(c, err)
		return
	}
	s.log.Info("content imported",
		zap.String("user_id", c.GetString(ctxUserID)),
		zap.Int("quizzes", res.Quizzes),
		zap.Int("questions", res.Questions),
	)
	ok(c, res)
}
