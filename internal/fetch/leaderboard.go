// Package fetch implements the Product Hunt list and detail fetchers on
// top of the shared browser session.
package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
	"github.com/RaihanArvi/producthunt-scraper/internal/snapshot"
)

const (
	leaderboardBase = siteRoot + "leaderboard/daily/"

	leaderboardReadySelector = `[data-test="leaderboard-title"]`
	detailReadySelector      = "main h2"
)

// Renderer loads a page and returns its rendered DOM. browser.Session
// satisfies it.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string) (string, error)
}

// LeaderboardFetcher implements scraper.ListFetcher over the daily
// leaderboard page.
type LeaderboardFetcher struct {
	renderer  Renderer
	snapshots snapshot.Store
	logger    *zap.Logger
}

// NewLeaderboardFetcher constructs a LeaderboardFetcher. A nil snapshot
// store disables archiving.
func NewLeaderboardFetcher(renderer Renderer, snapshots snapshot.Store, logger *zap.Logger) *LeaderboardFetcher {
	if snapshots == nil {
		snapshots = snapshot.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardFetcher{renderer: renderer, snapshots: snapshots, logger: logger}
}

// FetchList renders the leaderboard for date and parses its ranked entries.
func (f *LeaderboardFetcher) FetchList(ctx context.Context, date time.Time) ([]scraper.Product, error) {
	pageURL := leaderboardBase + date.Format("2006/01/02")

	html, err := f.renderer.Render(ctx, pageURL, leaderboardReadySelector)
	if err != nil {
		return nil, &scraper.FetchError{URL: pageURL, Err: err}
	}
	f.archive(ctx, date.Format(scraper.DateLayout)+"/leaderboard.html", html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &scraper.FetchError{URL: pageURL, Err: err}
	}

	products := parseLeaderboard(doc)
	f.logger.Debug("Leaderboard fetched",
		zap.String("url", pageURL),
		zap.Int("products", len(products)),
	)
	return products, nil
}

func (f *LeaderboardFetcher) archive(ctx context.Context, key, html string) {
	if err := f.snapshots.Save(ctx, key, []byte(html)); err != nil {
		f.logger.Warn("Snapshot save failed", zap.String("key", key), zap.Error(err))
	}
}
