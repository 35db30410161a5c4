// Package notifier implements the delivery channels alerts go out through.
// The engine treats delivery as fire-and-forget; whatever consumes the
// channel (a push gateway, a chat bridge) owns retries and fan-out.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const alertStreamKey = "audit_alerts"

// RedisNotifier publishes one notification per recipient onto a Redis
// Stream consumed by the downstream delivery service.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier creates a RedisNotifier on the given client.
func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger.With("component", "redis_notifier"),
	}
}

// Notify appends the notification to the alert stream.
func (n *RedisNotifier) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	values := map[string]interface{}{
		"message_id": uuid.NewString(),
		"recipient":  recipientID,
		"title":      title,
		"body":       body,
		"data":       string(payload),
		"queued_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: alertStreamKey,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish notification for %s: %w", recipientID, err)
	}

	n.logger.Debug("notification queued", "recipient", recipientID)
	return nil
}
