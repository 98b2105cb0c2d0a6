package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/moynul/taptosell-server/internal/infrastructure/redis"
	"github.com/segmentio/kafka-go"
)

// Consumer follows the subscriptions topic and keeps the Redis
// vendor-subscription cache in step, so marketplace privilege checks
// don't hit Postgres. The cache is advisory; the store stays
// authoritative.
type Consumer struct {
	reader      *kafka.Reader
	redisClient redis.RedisClient
}

func NewConsumer(brokers []string, topic, groupID string, redisClient redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		redisClient: redisClient,
	}
}

type subscriptionEvent struct {
	EventType      string `json:"event_type"`
	SubscriptionID int64  `json:"subscription_id"`
	VendorID       int64  `json:"vendor_id"`
	PlanType       string `json:"plan_type"`
	Status         string `json:"status"`
	EndDate        string `json:"end_date"`
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("subscription consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		var event subscriptionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal subscription event", "error", err)
			continue
		}

		cacheKey := fmt.Sprintf("vendor:%d:subscription", event.VendorID)
		switch event.EventType {
		case "subscription_created":
			ttl := 24 * time.Hour
			if endDate, err := time.Parse(time.RFC3339, event.EndDate); err == nil {
				if until := time.Until(endDate); until > 0 && until < ttl {
					ttl = until
				}
			}
			if err := c.redisClient.Set(ctx, cacheKey, string(msg.Value), ttl); err != nil {
				slog.Error("failed to cache subscription", "vendor_id", event.VendorID, "error", err)
				continue
			}
			slog.Info("subscription cached", "vendor_id", event.VendorID, "subscription_id", event.SubscriptionID)

		case "subscription_expired", "subscription_cancelled":
			if err := c.redisClient.Del(ctx, cacheKey); err != nil {
				slog.Error("failed to drop subscription cache", "vendor_id", event.VendorID, "error", err)
				continue
			}
			slog.Info("subscription cache dropped", "vendor_id", event.VendorID, "event", event.EventType)

		default:
			slog.Error("unknown subscription event type", "type", event.EventType)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
