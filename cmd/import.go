package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/tutorly/internal/content"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import courses, lessons and quizzes from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := content.NewImporter(st.ContentRepo()).ImportFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		fmt.Printf("Imported %d course(s), %d lesson(s), %d quiz(zes), %d question(s).\n",
			res.Courses, res.Lessons, res.Quizzes, res.Questions)
		return nil
	},
}
