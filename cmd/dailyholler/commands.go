package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"DailyHoller/internal/app"
	"DailyHoller/internal/config"
	"DailyHoller/internal/infrastructure/cities"
	"DailyHoller/internal/logging"
)

type cliState struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "dailyholler",
		Short:         "Generate and publish satirical local news for every city",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if state.configPath != "" {
				if err := os.Setenv(config.PathEnv, state.configPath); err != nil {
					return fmt.Errorf("set config path: %w", err)
				}
			}
			state.cfg = config.Load()
			state.logger = logging.New(
				state.cfg.Logging.Level,
				logging.WithFormat(state.cfg.Logging.Format),
				logging.WithOutput(cmd.ErrOrStderr()),
			)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&state.configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		newRunCmd(state),
		newDaemonCmd(state),
		newServeCmd(state),
		newMigrateCmd(state),
		newCitiesCmd(state),
	)
	return root
}

func newRunCmd(state *cliState) *cobra.Command {
	var replaceToday bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one article per city, resuming from the last checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			summary, err := application.RunOnce(cmd.Context(), replaceToday)
			renderSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}
	cmd.Flags().BoolVar(&replaceToday, "replace-today", false, "delete today's articles before a fresh pass")
	return cmd
}

func newDaemonCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Refresh cities continuously, skipping recently refreshed ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.RunForever(cmd.Context())
		},
	}
}

func newServeCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the daily regeneration schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

func newMigrateCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Migrate(state.cfg, state.logger); err != nil {
				return err
			}
			state.logger.Info("migrations applied")
			return nil
		},
	}
}

func newCitiesCmd(state *cliState) *cobra.Command {
	var q cities.Query
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List the cities in generation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := cities.Load(state.cfg.Cities.Path, state.cfg.Cities.Limit)
			if err != nil {
				return err
			}
			renderCities(cmd.OutOrStdout(), src.Find(q))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "filter by city or state name")
	cmd.Flags().StringVar(&q.State, "state", "", "filter by state code")
	cmd.Flags().StringVar(&q.Region, "region", "", "filter by region")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 25, "cities per page")
	return cmd
}
