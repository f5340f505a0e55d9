package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RaihanArvi/producthunt-scraper/internal/clock/system"
	"github.com/RaihanArvi/producthunt-scraper/internal/fetch"
	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Starts the leaderboard scrape run",
		Long: `Walks the configured date range in ascending order, scraping each
day's leaderboard and the full detail of every listed product. Interrupt
with SIGINT/SIGTERM for a graceful stop: in-flight products finish, the
current date is left uncommitted, and the next run reprocesses it.`,

		RunE: runScrapeCommand,
	}
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	// Cobra skips post-run hooks on error; Close is idempotent so the
	// release path holds on every exit route, panics included.
	defer appInstance.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appInstance.Config()
	lists := fetch.NewLeaderboardFetcher(appInstance.Session(), appInstance.Snapshots(), appInstance.Logger())
	details := fetch.NewProductFetcher(appInstance.Session(), appInstance.Snapshots(), appInstance.Logger())

	engine := scraper.NewEngine(
		scraper.Config{
			StartDate:         cfg.StartDate(),
			EndDate:           cfg.EndDate(),
			Concurrency:       cfg.Scraper.Concurrency,
			ListRetryAttempts: cfg.Scraper.ListRetryMax,
			ItemBudget:        time.Duration(cfg.Scraper.ItemBudgetSeconds) * time.Second,
		},
		lists,
		details,
		appInstance.Sinks(),
		appInstance.Checkpoint(),
		system.New(),
		appInstance.Logger(),
	)

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run scraper: %w", err)
	}

	appInstance.Logger().Info("Scrape command finished.")
	return nil
}
