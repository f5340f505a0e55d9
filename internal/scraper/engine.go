package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config controls Engine behavior for one run.
type Config struct {
	// StartDate is the first leaderboard date to scrape. A checkpoint
	// later than it wins.
	StartDate time.Time
	// EndDate is the last date to scrape; zero means "through today".
	// The effective bound is re-derived every iteration so runs that
	// cross midnight extend on their own.
	EndDate time.Time
	// Concurrency bounds detail fetches in flight within a date.
	// Zero or negative means fully sequential.
	Concurrency int
	// ListRetryAttempts bounds whole-date leaderboard fetch attempts
	// before the date is skipped. Zero uses the policy default.
	ListRetryAttempts int
	// ItemBudget is the wall-clock allowance for one item: detail fetch
	// plus sink deliveries. It doubles as the grace window on shutdown,
	// since in-flight items run detached from run cancellation.
	// Zero defaults to two minutes.
	ItemBudget time.Duration
}

// Engine drives the run: for each date in ascending order it fetches the
// leaderboard, fans detail fetches out through the gate, delivers every
// completed record to all sinks, and commits the checkpoint. Dates are
// never processed concurrently with each other; a date is committed only
// after every one of its items reached a terminal state.
type Engine struct {
	cfg     Config
	lists   ListFetcher
	details DetailFetcher
	sinks   []Sink
	ckpt    CheckpointStore
	clock   Clock
	gate    *Gate
	retry   *RetryPolicy
	logger  *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(
	cfg Config,
	lists ListFetcher,
	details DetailFetcher,
	sinks []Sink,
	ckpt CheckpointStore,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ItemBudget <= 0 {
		cfg.ItemBudget = 2 * time.Minute
	}
	return &Engine{
		cfg:     cfg,
		lists:   lists,
		details: details,
		sinks:   sinks,
		ckpt:    ckpt,
		clock:   clock,
		gate:    NewGate(cfg.Concurrency),
		retry:   NewRetryPolicy(cfg.ListRetryAttempts),
		logger:  logger,
	}
}

// Run executes the date loop until the cursor is exhausted or the context
// is canceled. It returns ctx.Err() on cancellation (the caller treats
// that as a clean stop) and a *CheckpointError if a commit fails.
func (e *Engine) Run(ctx context.Context) error {
	logger := e.logger.With(zap.String("run_id", uuid.NewString()))

	start := Midnight(e.cfg.StartDate)
	if last, ok := e.ckpt.Load(); ok {
		resume := Midnight(last).AddDate(0, 0, 1)
		if resume.After(start) {
			start = resume
		}
		logger.Info("Resuming from checkpoint",
			zap.String("last_date", last.Format(DateLayout)),
			zap.String("start_date", start.Format(DateLayout)),
		)
	}

	cursor := NewDateCursor(start, e.cfg.EndDate, e.clock)
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("Run canceled")
			return err
		}
		date, ok := cursor.Next()
		if !ok {
			break
		}
		if err := e.processDate(ctx, logger, date); err != nil {
			return err
		}
	}

	logger.Info("Scrape run finished")
	return nil
}

func (e *Engine) processDate(ctx context.Context, logger *zap.Logger, date time.Time) error {
	dateStr := date.Format(DateLayout)
	dlog := logger.With(zap.String("date", dateStr))
	dlog.Info("Processing date")

	products, listErr := e.fetchListWithRetry(ctx, dlog, date)
	switch {
	case listErr != nil && ctx.Err() != nil:
		return ctx.Err()
	case listErr != nil:
		// Skip the date rather than stall the run. The checkpoint still
		// advances so forward progress is never blocked by one bad day.
		dlog.Error("Leaderboard fetch exhausted retries; skipping date", zap.Error(listErr))
		observeDate("skipped")
		products = nil
	}

	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int64
		failed       atomic.Int64
		sinkFailures atomic.Int64
	)
	for rank, stub := range products {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(rank int, stub Product) {
			defer wg.Done()
			if err := e.gate.Acquire(ctx); err != nil {
				failed.Add(1)
				observeProduct("canceled")
				return
			}
			defer e.gate.Release()
			e.processItem(ctx, dlog, date, rank, stub, &succeeded, &failed, &sinkFailures)
		}(rank, stub)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Partial-date progress is never checkpointed; this date replays
		// in full on the next run.
		dlog.Info("Canceled mid-date; date will be reprocessed",
			zap.Int64("succeeded", succeeded.Load()),
		)
		return err
	}

	if err := e.ckpt.Commit(date); err != nil {
		return &CheckpointError{Date: dateStr, Err: err}
	}
	if listErr == nil {
		observeDate("completed")
	}

	stats := DayStats{
		Date:         date,
		Listed:       len(products),
		Succeeded:    int(succeeded.Load()),
		Failed:       int(failed.Load()),
		SinkFailures: int(sinkFailures.Load()),
	}
	logDayStats(dlog, stats)
	return nil
}

func (e *Engine) fetchListWithRetry(ctx context.Context, logger *zap.Logger, date time.Time) ([]Product, error) {
	for attempt := 0; ; attempt++ {
		products, err := e.lists.FetchList(ctx, date)
		if err == nil {
			return products, nil
		}
		if !e.retry.ShouldRetry(err, attempt+1) {
			return nil, err
		}
		observeListRetry()
		wait := e.retry.Backoff(attempt)
		logger.Warn("Leaderboard fetch failed; retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *Engine) processItem(
	ctx context.Context,
	logger *zap.Logger,
	date time.Time,
	rank int,
	stub Product,
	succeeded, failed, sinkFailures *atomic.Int64,
) {
	trackInFlight(1)
	defer trackInFlight(-1)

	// An item that already holds a permit runs detached from shutdown so
	// it can finish its current fetch and sink writes; the budget bounds
	// the grace instead.
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ItemBudget)
	defer cancel()

	ilog := logger.With(zap.String("product", stub.Name), zap.Int("rank", rank))

	full, err := e.details.FetchDetail(itemCtx, stub)
	if err != nil {
		failed.Add(1)
		observeProduct("failed")
		ilog.Error("Detail fetch failed", zap.Error(err))
		return
	}
	full.Date = date.Format(DateLayout)

	rec := Record{Date: full.Date, Rank: rank, Product: full}
	for _, s := range e.sinks {
		if derr := s.Deliver(itemCtx, rec); derr != nil {
			sinkFailures.Add(1)
			observeDelivery(s.Name(), "failed")
			ilog.Error("Sink delivery failed", zap.Error(&DeliveryError{Sink: s.Name(), Err: derr}))
			continue
		}
		observeDelivery(s.Name(), "delivered")
	}

	succeeded.Add(1)
	observeProduct("succeeded")
}

func logDayStats(logger *zap.Logger, stats DayStats) {
	fields := []zap.Field{
		zap.Int("listed", stats.Listed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("sink_failures", stats.SinkFailures),
	}
	switch {
	case stats.Listed == 0:
		logger.Info("No products for date", fields...)
	case stats.Failed > 0 || stats.SinkFailures > 0:
		logger.Warn("Date completed with failures", fields...)
	default:
		logger.Info("Date completed", fields...)
	}
}
