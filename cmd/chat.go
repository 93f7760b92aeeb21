package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/tutor"
)

var chatCmd = &cobra.Command{
	Use:   "chat [--mode analyze] <message>",
	Short: "Ask the tutor a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := tutor.ParseMode(modeFlag)
		if err != nil {
			return err
		}

		_, cfg, err := loadConfig(cmd)
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

		svc := newTutor(cmd.Context(), cfg, st, log)
		if svc == nil {
			return errors.New("no LLM provider configured")
		}

		reply, err := svc.Complete(cmd.Context(), []llm.Message{
			{Role: llm.RoleUser, Content: strings.Join(args, " ")},
		}, mode)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringP("mode", "m", string(tutor.ModeTutor), "Reply style: tutor or analyze")
}
