package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// pgxPool is the subset of pgxpool.Pool the sink uses; pgxmock satisfies
// it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres inserts one row per record, an alternative warehouse for
// deployments without a BigQuery project. It assumes a table like:
//
//	CREATE TABLE products (
//	    scrape_date DATE NOT NULL,
//	    rank        INT NOT NULL,
//	    product     JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ DEFAULT NOW()
//	);
type Postgres struct {
	pool      pgxPool
	insertSQL string
	logger    *zap.Logger
}

// NewPostgres connects a pool and pings it to fail fast on bad credentials.
func NewPostgres(ctx context.Context, dsn, table string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newPostgres(pool, table, logger), nil
}

func newPostgres(pool pgxPool, table string, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		pool: pool,
		insertSQL: fmt.Sprintf(
			"INSERT INTO %s (scrape_date, rank, product) VALUES ($1, $2, $3)",
			pgx.Identifier{table}.Sanitize(),
		),
		logger: logger,
	}
}

// Name identifies this sink in logs and metrics.
func (s *Postgres) Name() string { return "postgres" }

// Deliver inserts one row.
func (s *Postgres) Deliver(ctx context.Context, rec scraper.Record) error {
	productJSON, err := json.Marshal(rec.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if _, err := s.pool.Exec(ctx, s.insertSQL, rec.Date, rec.Rank, productJSON); err != nil {
		return fmt.Errorf("insert product row: %w", err)
	}
	s.logger.Debug("Row inserted", zap.String("product", rec.Product.Name))
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
