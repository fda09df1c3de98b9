package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/watzon/virtualdate/internal/ical"
	"github.com/watzon/virtualdate/internal/schedule"
	"github.com/watzon/virtualdate/internal/taskfile"
)

var (
	exportTasksPath string
	exportFrom      string
	exportTo        string
	exportOutput    string
	exportFilter    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a schedule as iCalendar",
	Long: `Export builds the schedule for the window and writes it as an
iCalendar document, to stdout or to --output.

--filter restricts the export to task ids matching a glob pattern, e.g.
--filter 'meeting-*'.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTasksPath, "tasks", "", "path to the tasks file (default from config)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "window start, RFC 3339 (default: now)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "window end, RFC 3339 (default: from + configured window)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportFilter, "filter", "", "glob pattern over task ids")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	tasksPath := exportTasksPath
	if tasksPath == "" {
		tasksPath = cfg.Schedule.TasksFile
	}

	from, to, err := resolveWindow(cfg, exportFrom, exportTo)
	if err != nil {
		return err
	}

	tasks, err := taskfile.LoadFile(tasksPath)
	if err != nil {
		return err
	}

	instances, err := schedule.New(tasks...).Build(from, to)
	if err != nil {
		return err
	}

	if exportFilter != "" {
		g, err := glob.Compile(exportFilter)
		if err != nil {
			return fmt.Errorf("compiling --filter: %w", err)
		}
		filtered := instances[:0]
		for _, inst := range instances {
			if g.Match(inst.Task.ID) {
				filtered = append(filtered, inst)
			}
		}
		instances = filtered
	}

	doc := ical.Export(cfg.Schedule.CalendarName, instances, time.Now())

	if exportOutput == "" {
		fmt.Print(doc)
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	return nil
}
