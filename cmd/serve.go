package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/content"
	"github.com/abhisek/tutorly/internal/event"
	"github.com/abhisek/tutorly/internal/monitoring"
	"github.com/abhisek/tutorly/internal/server"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		log, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer log.Sync()

		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
	st.SetLogger(log.Named("store"))

		shutdownTracing, err := tracing.Setup(cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("tracing shutdown", zap.Error(err))
			}
		}()

		pub, err := event.New(cfg.AMQP, log)
		if err != nil {
			return err
		}
		defer pub.Close()

		metrics := monitoring.New()
		rec := session.NewRecorder(session.RecorderDeps{
			Attempts:        st.AttemptRepo(),
			Profiles:        st.ProfileRepo(),
			Recommendations: st.RecommendationRepo(),
			Exams:           st.ExamSessionRepo(),
			Publisher:       pub,
			Metrics:         metrics,
			Logger:          log.Named("recorder"),
		})
		defer rec.Close()

		deps := server.Deps{
			Quizzes:         st.QuizRepo(),
			Attempts:        st.AttemptRepo(),
			Profiles:        st.ProfileRepo(),
			Recommendations: st.RecommendationRepo(),
			Importer:        content.NewImporter(st.ContentRepo()),
			Sink:            rec,
			Metrics:         metrics,
			Health:          st.Ping,
			Tracer:          otel.GetTracerProvider(),
			Logger:          log,
		}
		if t := newTutor(ctx, cfg, st, log); t != nil {
			deps.Tutor = t
		}

		srv, err := server.New(server.Config{
			Addr:          cfg.Server.Addr,
			Mode:          cfg.Server.Mode,
			CORSOrigins:   cfg.Server.CORSOrigins,
			JWTSecret:     cfg.JWT.Secret,
			JWTIssuer:     cfg.JWT.Issuer,
			ChatPerMinute: cfg.Server.ChatLimit.PerMinute,
			ChatBurst:     cfg.Server.ChatLimit.Burst,
		}, deps, cfg.Policy)
		if err != nil {
			return err
		}
		loader.Watch(log, srv.SetPolicy)

		log.Info("serving", zap.String("config", loader.ConfigFile()), zap.String("llm_provider", cfg.LLM.Provider))
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
