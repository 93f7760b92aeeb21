package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/server"
	"github.com/abhisek/tutorly/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if user == "" {
			return errors.New("--user is required")
		}
		if role != "student" && role != "admin" {
			return fmt.Errorf("role must be student or admin, got %q", role)
		}

		_, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret is not set (TUTORLY_JWT_SECRET)")
		}
		if ttl <= 0 {
			ttl = cfg.JWT.TTL
		}

		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.ProfileRepo().EnsureUser(cmd.Context(), store.User{ID: user, Name: user, Role: role}); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		tok, err := server.IssueToken(cfg.JWT.Secret, cfg.JWT.Issuer, user, role, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "Subject of the token")
	tokenCmd.Flags().String("role", "student", "student or admin")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to jwt.ttl)")
}
