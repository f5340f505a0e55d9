// Package cmd defines and implements the CLI commands for the
// producthunt-scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/app"
	"github.com/RaihanArvi/producthunt-scraper/internal/browser"
	"github.com/RaihanArvi/producthunt-scraper/internal/checkpoint"
	"github.com/RaihanArvi/producthunt-scraper/internal/config"
	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
	"github.com/RaihanArvi/producthunt-scraper/internal/snapshot"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the application interface commands use, so tests can inject a
// mock container.
type App interface {
	Close()
	Logger() *zap.Logger
	Session() *browser.Session
	Sinks() []scraper.Sink
	Snapshots() snapshot.Store
	Checkpoint() *checkpoint.FileStore
	Config() config.Config
}

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "producthunt-scraper",
		Short: "Scrapes the Product Hunt daily leaderboard into a warehouse",
		Long: `producthunt-scraper walks a calendar range one day at a time, scrapes
the daily leaderboard and full product detail for each date, and delivers
every completed product to the configured sinks. Progress is checkpointed
per date so an interrupted run resumes where it left off.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches . and $HOME/.producthunt-scraper)")
	cmd.AddCommand(newScrapeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
