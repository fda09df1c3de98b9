package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/virtualdate/internal/database"
	"github.com/watzon/virtualdate/internal/schedule"
	"github.com/watzon/virtualdate/internal/server"
)

var (
	servePort   int
	serveHost   string
	serveNoSave bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the schedule as a calendar feed",
	Long: `Serve runs the HTTP feed server. The schedule is rebuilt whenever
the tasks file changes and on the configured refresh interval.

Endpoints:
  GET /calendar.ics  the current window as iCalendar
  GET /healthz       liveness and last-build status
  GET /metrics       Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (default from config)")
	serveCmd.Flags().BoolVar(&serveNoSave, "no-save", false, "do not persist builds to the database")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	var opts []server.Option
	if !serveNoSave {
		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, server.WithStore(schedule.NewStore(db)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("tasks", cfg.Schedule.TasksFile).
		Str("addr", cfg.Server.Address()).
		Msg("Starting calendar feed server")

	return server.New(cfg, opts...).Start(ctx)
}
