package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/jaeyongpark0121/product-normalizer/internal/config"
	"github.com/jaeyongpark0121/product-normalizer/internal/model"
)

// Producer publishes per-file processing results to Kafka. Publication is
// retried per the strategy; the image processing itself never is.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Events
}

// New creates a new Producer for the configured topic.
// - cfg: events configuration struct
// - s: retry strategy for publication
func New(cfg *config.Events, s retry.Strategy) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Publish serializes the result to JSON and sends it to Kafka.
// The task ID is used as the message key for partitioning and ordering.
func (p *Producer) Publish(ctx context.Context, res model.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %v", err)
	}

	key := []byte(res.Task.ID.String())

	if err := p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send result: %v", err)
	}

	return nil
}
