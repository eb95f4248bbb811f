package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

const (
	// DefaultResetStream is consumed by the mail sender.
	DefaultResetStream = "auth:password-resets"
	defaultStreamLen   = 10000
)

// StreamNotifier publishes reset notifications to a Redis stream. Rendering
// and sending the mail is the job of the stream consumer.
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	if stream == "" {
		stream = DefaultResetStream
	}
	return &StreamNotifier{client: client, stream: stream, maxLen: defaultStreamLen}
}

func (n *StreamNotifier) Deliver(ctx context.Context, msg domain.ResetNotification) error {
	err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":         msg.ID,
			"user_id":    msg.UserID,
			"username":   msg.Username,
			"email":      msg.Email,
			"token":      msg.Token,
			"expires_at": msg.ExpiresAt.UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish reset notification: %w", err)
	}
	return nil
}
