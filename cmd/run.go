package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/app"
	"github.com/abhisek/tutorly/internal/event"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the terminal client (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func init() {
	runCmd.Flags().String("user", "local", "Local user to sign in as")
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	loader, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
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

	pub, err := event.New(cfg.AMQP, log)
	if err != nil {
		log.Warn("event publisher unavailable, continuing without it", zap.Error(err))
		pub, _ = event.New(event.Config{}, log)
	}
	defer pub.Close()

	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return fmt.Errorf("--user must not be empty")
	}

	deps := app.Deps{
		UserID:    user,
		Store:     st,
		Policy:    cfg.Policy,
		Publisher: pub,
		Logger:    log,
	}
	if t := newTutor(ctx, cfg, st, log); t != nil {
		deps.Tutor = t
	}

	log.Info("terminal client starting", zap.String("user_id", user), zap.String("config", loader.ConfigFile()))
	return app.Run(deps)
}
