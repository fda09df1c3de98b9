package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/virtualdate/internal/config"
	"github.com/watzon/virtualdate/internal/database"
	"github.com/watzon/virtualdate/internal/schedule"
	"github.com/watzon/virtualdate/internal/taskfile"
)

var (
	buildTasksPath string
	buildFrom      string
	buildTo        string
	buildSave      bool
	buildExplain   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a schedule for a time window",
	Long: `Build loads the task file, schedules every task inside the window,
and prints the resulting placements.

With --save the build is persisted to the configured SQLite database and
its id is printed.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildTasksPath, "tasks", "", "path to the tasks file (default from config)")
	buildCmd.Flags().StringVar(&buildFrom, "from", "", "window start, RFC 3339 (default: now)")
	buildCmd.Flags().StringVar(&buildTo, "to", "", "window end, RFC 3339 (default: from + configured window)")
	buildCmd.Flags().BoolVar(&buildSave, "save", false, "persist the build to the database")
	buildCmd.Flags().BoolVar(&buildExplain, "explain", false, "print per-instance explanations")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	tasksPath := buildTasksPath
	if tasksPath == "" {
		tasksPath = cfg.Schedule.TasksFile
	}

	from, to, err := resolveWindow(cfg, buildFrom, buildTo)
	if err != nil {
		return err
	}

	tasks, err := taskfile.LoadFile(tasksPath)
	if err != nil {
		return err
	}

	started := time.Now()
	instances, err := schedule.New(tasks...).Build(from, to)
	if err != nil {
		return err
	}

	log.Info().
		Int("tasks", len(tasks)).
		Int("instances", len(instances)).
		Dur("took", time.Since(started)).
		Msg("Schedule built")

	printSchedule(instances)

	if buildSave {
		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := schedule.NewStore(db).SaveBuild(cmd.Context(), from, to, instances)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved build %s\n", id)
	}

	return nil
}

func printSchedule(instances []*schedule.Instance) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTART\tFINISH")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			inst.Task.ID,
			inst.Start.Format(time.RFC3339),
			inst.Finish.Format(time.RFC3339),
		)
	}
	_ = w.Flush()

	if buildExplain {
		for _, inst := range instances {
			if inst.Explain == nil || inst.Explain.Len() == 0 {
				continue
			}
			fmt.Printf("\n%s:\n", inst.Task.ID)
			for _, line := range inst.Explain.Lines() {
				fmt.Printf("  %s\n", line)
			}
		}
	}
}

// loadConfig loads the config file when one is present and falls back to
// defaults otherwise.
func loadConfig() *config.Config {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		log.Debug().Err(err).Msg("No usable config file, using defaults")
		return config.Default()
	}
	return cfg
}

// resolveWindow turns the --from/--to flags into a concrete window.
func resolveWindow(cfg *config.Config, fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now().Truncate(time.Minute)
	if fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --from: %w", err)
		}
	}

	to := from.Add(cfg.Schedule.Window)
	if toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing --to: %w", err)
		}
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is not after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	return from, to, nil
}
