package redis

import (
	"context"
	"fmt"
	"strconv"

	"mission-rewards-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// defaultStreamMaxLen caps the stream so unconsumed history cannot grow
// without bound. Trimming is approximate.
const defaultStreamMaxLen = 100000

// StreamPublisher implements ports.NotificationPublisher by appending each
// notification to a Redis stream. Consumers read with XREADGROUP.
type StreamPublisher struct {
	client goredis.UniversalClient
	stream string
	maxLen int64
}

func NewStreamPublisher(client goredis.UniversalClient, stream string) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
	}
}

// Publish appends the notification. The notification id travels with the
// entry so consumers can drop redeliveries.
func (p *StreamPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"notification_id": n.ID.String(),
			"event":           string(n.Event),
			"recipient_type":  string(n.Recipient.Type),
			"recipient_id":    n.Recipient.ID.String(),
			"payload":         string(n.Payload),
			"attempt":         strconv.Itoa(n.Attempt),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", p.stream, err)
	}
	return nil
}
