// Package sink provides the output destinations a completed record can be
// delivered to. The active set is fixed at startup from configuration.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// BigQuery inserts one row per record into a warehouse table.
//
// The target table is expected to have three columns:
//
//	date    DATE
//	rank    INT64
//	product JSON
type BigQuery struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	table    string
	logger   *zap.Logger
}

// NewBigQuery connects to the table identified as "project.dataset.table".
// An empty credentialsFile falls back to application default credentials.
func NewBigQuery(ctx context.Context, credentialsFile, tableID string, logger *zap.Logger) (*BigQuery, error) {
	parts := strings.Split(tableID, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("bigquery table must be project.dataset.table, got %q", tableID)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, parts[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	return &BigQuery{
		client:   client,
		inserter: client.Dataset(parts[1]).Table(parts[2]).Inserter(),
		table:    tableID,
		logger:   logger,
	}, nil
}

// Name identifies this sink in logs and metrics.
func (s *BigQuery) Name() string { return "bigquery" }

// Deliver streams one row. The insert ID is derived from (date, rank) so
// BigQuery can best-effort deduplicate replays of a re-scraped date.
func (s *BigQuery) Deliver(ctx context.Context, rec scraper.Record) error {
	productJSON, err := json.Marshal(rec.Product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	row := recordRow{
		date:    rec.Date,
		rank:    rec.Rank,
		product: string(productJSON),
	}
	if err := s.inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}
	s.logger.Debug("Row inserted",
		zap.String("table", s.table),
		zap.String("product", rec.Product.Name),
	)
	return nil
}

// Close releases the BigQuery client.
func (s *BigQuery) Close() error {
	return s.client.Close()
}

type recordRow struct {
	date    string
	rank    int
	product string
}

// Save implements bigquery.ValueSaver.
func (r recordRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"date":    r.date,
		"rank":    r.rank,
		"product": r.product,
	}, fmt.Sprintf("%s-%d", r.date, r.rank), nil
}
