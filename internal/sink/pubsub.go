package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

// PubSub publishes each completed record to a topic for downstream
// consumers (enrichment jobs, alerting). Delivery is acknowledged by the
// service before Deliver returns.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub connects to the topic using application default credentials.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSub{
		client: client,
		topic:  client.Topic(topicID),
		logger: logger,
	}, nil
}

// Name identifies this sink in logs and metrics.
func (s *PubSub) Name() string { return "pubsub" }

// Deliver publishes the record as a JSON message.
func (s *PubSub) Deliver(ctx context.Context, rec scraper.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"date": rec.Date,
			"rank": strconv.Itoa(rec.Rank),
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	s.logger.Debug("Record published",
		zap.String("message_id", id),
		zap.String("product", rec.Product.Name),
	)
	return nil
}

// Close flushes pending publishes and releases the client.
func (s *PubSub) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
