package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		_, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		profile, err := s.ProfileRepo().Get(ctx, user)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		stats, err := s.AttemptRepo().Stats(ctx, user)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}

		fmt.Printf("User:      %s\n", user)
		fmt.Printf("Level:     %s\n", profile.Level)
		fmt.Printf("Points:    %d\n", profile.Points)
		fmt.Printf("Attempts:  %d (%d passed)\n", stats.Attempts, stats.Passed)
		if stats.Attempts > 0 {
			fmt.Printf("Average:   %.1f%%\n", stats.AvgScore)
			fmt.Printf("Best:      %d%%\n", stats.BestScore)
		}

		attempts, err := s.AttemptRepo().ListByUser(ctx, user, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(attempts) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Printf("%-19s  %-24s  %-5s  %6s  %6s  %-8s  %s\n",
			"Time", "Quiz", "Mode", "Score", "Points", "Result", "Ended by")
		fmt.Println(strings.Repeat("─", 90))
		for _, a := range attempts {
			result := "fail"
			if a.Passed {
				result = "pass"
			}
			fmt.Printf("%-19s  %-24s  %-5s  %5d%%  %6d  %-8s  %s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(a.QuizID, 24),
				a.Variant,
				a.Score,
				a.Points,
				result,
				a.Trigger,
			)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("user", "local", "User to report on")
	statsCmd.Flags().IntP("limit", "n", 10, "Number of recent attempts to show")
}
