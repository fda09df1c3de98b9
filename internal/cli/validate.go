package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watzon/virtualdate/internal/taskfile"
)

var validateTasksPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a tasks file",
	Long: `Validate parses the tasks file and reports every problem it finds,
with the line and column of each offending node.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateTasksPath, "tasks", "", "path to the tasks file (default from config)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	tasksPath := validateTasksPath
	if tasksPath == "" {
		tasksPath = cfg.Schedule.TasksFile
	}

	tasks, err := taskfile.LoadFile(tasksPath)
	if err != nil {
		var verrs taskfile.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				fmt.Printf("%s: %v\n", tasksPath, e)
			}
			return fmt.Errorf("%d validation error(s)", len(verrs))
		}
		return err
	}

	fmt.Printf("%s: %d task(s) OK\n", tasksPath, len(tasks))
	return nil
}
