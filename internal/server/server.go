// Package server is the HTTP API for quizzes, secure exams, learner
// progress and the tutor.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/monitoring"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tracing"
	"github.com/abhisek/tutorly/internal/tutor"
)

type Config struct {
	Addr        string
	Mode        string
	CORSOrigins []string

	JWTSecret string
	JWTIssuer string

	ChatPerMinute int
	ChatBurst     int

	// IdleTimeout abandons in-progress sessions nobody has touched.
	IdleTimeout time.Duration
	// RetainFinished keeps submitted sessions readable for this long.
	RetainFinished time.Duration
}

// Tutor answers chat requests.
type Tutor interface {
	Complete(ctx context.Context, conversation []llm.Message, mode tutor.Mode) (string, error)
}

// Importer loads course content from a YAML stream.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (store.ImportResult, error)
}

type Deps struct {
	Quizzes         store.QuizRepo
	Attempts        store.AttemptRepo
	Profiles        store.ProfileRepo
	Recommendations store.RecommendationRepo
	Importer        Importer
	Tutor           Tutor

	// Sink receives session side effects, normally a *session.Recorder.
	Sink    session.Sink
	Metrics *monitoring.Metrics
	// Health, when set, is checked by /healthz, e.g. a database ping.
	Health  func(context.Context) error
	Tracer  trace.TracerProvider
	Clock   session.Clock
	Logger  *zap.Logger
}

type Server struct {
	cfg    Config
	deps   Deps
	log    *zap.Logger
	clock  session.Clock
	engine *gin.Engine

	sessions   *Registry
	chatLimit  *userLimiter
	policy     atomic.Pointer[session.Policy]
	knownUsers sync.Map
}

func New(cfg Config, deps Deps, policy session.Policy) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required to serve the API")
	}
	if deps.Quizzes == nil || deps.Profiles == nil {
		return nil, errors.New("quiz and profile repositories are required")
	}
	if cfg.ChatPerMinute <= 0 {
		cfg.ChatPerMinute = 20
	}
	if cfg.ChatBurst <= 0 {
		cfg.ChatBurst = 5
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 4 * time.Hour
	}
	if cfg.RetainFinished <= 0 {
		cfg.RetainFinished = time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = session.WallClock
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger,
		clock:     deps.Clock,
		sessions:  NewRegistry(deps.Clock),
		chatLimit: newUserLimiter(cfg.ChatPerMinute, cfg.ChatBurst),
	}
	s.SetPolicy(policy)
	s.engine = s.routes()
	return s, nil
}

// SetPolicy replaces the policy applied to sessions started from now on.
func (s *Server) SetPolicy(p session.Policy) {
	s.policy.Store(&p)
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		s.log.Error("panic serving request", zap.String("path", c.Request.URL.Path), zap.Any("panic", rec))
		fail(c, http.StatusInternalServerError, "internal server error")
	}))
	r.Use(s.requestLogger())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Origin", "Cache-Control", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware())
	}
	if s.deps.Tracer != nil {
		r.Use(tracing.Middleware(s.deps.Tracer))
	}

	r.GET("/healthz", s.healthz)
	if s.deps.Metrics != nil {
		r.GET("/metrics", s.deps.Metrics.Handler())
	}

	api := r.Group("/api/v1", s.authenticate())
	{
		api.GET("/quizzes", s.listQuizzes)
		api.GET("/quizzes/:id", s.getQuiz)
		api.POST("/quizzes/:id/sessions", s.startSession)

		sessions := api.Group("/sessions/:id")
		sessions.GET("", s.getSession)
		sessions.PUT("/answers", s.answer)
		sessions.POST("/navigate", s.navigate)
		sessions.POST("/signals", s.signal)
		sessions.POST("/submit", s.submit)
		sessions.POST("/retry", s.retry)
		sessions.DELETE("", s.abandon)

		me := api.Group("/me")
		me.GET("/profile", s.profile)
		me.GET("/attempts", s.attempts)
		me.GET("/recommendations", s.recommendations)
		me.DELETE("/recommendations/:id", s.dismissRecommendation)

		api.POST("/chat", s.rateLimit(s.chatLimit), s.chat)

		admin := api.Group("/admin", requireRole(RoleAdmin))
		admin.POST("/import", s.importContent)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("request", fields...)
			return
		}
		s.log.Info("request", fields...)
	}
}

func (s *Server) healthz(c *gin.Context) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			fail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	ok(c, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.janitor(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() {
	now := s.clock.Now()
	if n := s.sessions.Sweep(now.Add(-s.cfg.IdleTimeout), now.Add(-s.cfg.RetainFinished)); n > 0 {
		s.log.Info("swept sessions", zap.Int("removed", n))
	}
	s.chatLimit.prune(now.Add(-10 * time.Minute))
}
