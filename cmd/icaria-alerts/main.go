package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/audit"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/config"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/platform/db"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/platform/middleware"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/platform/telemetry"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/redcap"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/report"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/runner"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "icaria-alerts",
		Short: "Follow-up alert manager for ICARIA REDCap projects",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve and apply alerts on every configured project",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			only, _ := cmd.Flags().GetStringSlice("project")

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			var failed int
			for _, project := range app.projectNames(only) {
				r := app.runner()
				if _, err := r.Run(ctx, project, app.client(project), dryRun); err != nil {
					app.log.Error().Err(err).Str("project", project).Msg("pass failed")
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d project(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "resolve the plan but write nothing back")
	cmd.Flags().StringSlice("project", nil, "restrict the pass to these project keys")
	return cmd
}

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Force-clear one alert from every status carrying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("alert")
			if code == "" {
				return fmt.Errorf("--alert is required")
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			only, _ := cmd.Flags().GetStringSlice("project")

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			if err := app.cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			for _, project := range app.projectNames(only) {
				n, err := app.runner().RemoveAlert(ctx, project, app.client(project), code, dryRun)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d status(es) matched %q\n", project, n, code)
			}
			return nil
		},
	}
	cmd.Flags().String("alert", "", "alert code to remove (e.g. TBV)")
	cmd.Flags().Bool("dry-run", false, "report matches but write nothing back")
	cmd.Flags().StringSlice("project", nil, "restrict to these project keys")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve run history and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.close()
			return app.serve()
		},
	}
}

// app holds the wired process dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	defs     *config.AlertsFile
	projects map[string]string
	pool     *pgxpool.Pool
	runs     audit.RunRepository
	metrics  *telemetry.Metrics
	log      zerolog.Logger
}

func newApp() (*app, error) {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	projects, err := cfg.Projects()
	if err != nil {
		return nil, err
	}
	defs, err := config.LoadAlertsFile(cfg.AlertsFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		defs:     defs,
		projects: projects,
		metrics:  telemetry.NewMetrics(),
		log:      log,
	}

	// Run history goes to Postgres when configured, otherwise it stays in
	// memory for the lifetime of the process.
	if cfg.DatabaseURL != "" {
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, 4, 1)
		if err != nil {
			return nil, err
		}
		if err := audit.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		a.pool = pool
		a.runs = audit.NewRunRepoPG(pool)
		log.Info().Msg("audit runs persisted to database")
	} else {
		a.runs = audit.NewMemRepo()
	}
	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) projectNames(only []string) []string {
	names := make([]string, 0, len(a.projects))
	for name := range a.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(only) == 0 {
		return names
	}
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = true
	}
	var out []string
	for _, name := range names {
		if want[name] {
			out = append(out, name)
		}
	}
	return out
}

func (a *app) client(project string) *redcap.Client {
	return redcap.New(a.cfg.RedcapURL, a.projects[project], a.log,
		redcap.WithHTTPClient(&http.Client{Timeout: time.Duration(a.cfg.HTTPTimeoutSeconds) * time.Second}),
		redcap.WithMaxRetries(a.cfg.MaxRetries),
		redcap.WithSeparators(a.cfg.ChoiceSep, a.cfg.CodeSep),
		redcap.WithObserver(func(content, outcome string) {
			a.metrics.RedcapRequests.WithLabelValues(content, outcome).Inc()
		}),
	)
}

func (a *app) runner() *runner.Runner {
	return runner.New(a.defs.Definitions(), a.defs.Params(a.cfg), a.defs.EventNameMap(),
		a.runs, a.metrics, a.log)
}

func (a *app) serve() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.log))

	report.NewHandler(a.runs, a.metrics, version).RegisterRoutes(e)

	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		a.log.Fatal().Err(err).Msg("server shutdown failed")
	}
	a.log.Info().Msg("server stopped")
	return nil
}
