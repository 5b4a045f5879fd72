package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/snappy-loop/fairytales/internal/models"
)

// messageReader is the subset of *kafka.Reader used by Consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler processes tale events
type EventHandler interface {
	HandleTaleEvent(ctx context.Context, event *models.TaleEvent) error
}

// Consumer reads tale events
type Consumer struct {
	reader     messageReader
	handler    EventHandler
	commit     bool
	maxRetries int
	baseDelay  time.Duration
}

// NewConsumer creates a new Kafka consumer. An empty groupID reads the topic
// from the start without committing offsets.
func NewConsumer(brokers []string, topic, groupID string, handler EventHandler) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	}
	if groupID != "" {
		cfg.CommitInterval = 0 // manual commits
		cfg.StartOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(cfg)

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		reader:     reader,
		handler:    handler,
		commit:     groupID != "",
		maxRetries: 5,
		baseDelay:  time.Second,
	}
}

// Start consumes until ctx is done. A message whose handler keeps failing is
// skipped after maxRetries attempts so it cannot block the topic.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		if err := c.processWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Skipping tale event after failed attempts")
		}

		if !c.commit {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("Failed to commit message")
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) error {
	event, err := DecodeTaleEvent(msg)
	if err != nil {
		// malformed payloads never succeed on retry
		return err
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if lastErr = c.handler.HandleTaleEvent(ctx, event); lastErr == nil {
			log.Debug().
				Str("tale_id", event.TaleID.String()).
				Str("event", event.Event).
				Msg("Tale event processed")
			return nil
		}
		log.Warn().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Failed to handle tale event - will retry")

		delay := c.baseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("handler error: %w", lastErr)
}

// DecodeTaleEvent parses a tale event message
func DecodeTaleEvent(msg kafka.Message) (*models.TaleEvent, error) {
	var event models.TaleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tale event: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("tale event at offset %d has no type", msg.Offset)
	}
	return &event, nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
