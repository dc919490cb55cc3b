package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/pizzadni/go-pizza-day.git/internal/kafka"
	"github.com/pizzadni/go-pizza-day.git/internal/orders"
	"github.com/pizzadni/go-pizza-day.git/internal/redisx"
)

// Service bridges Kafka domain events to Redis pub/sub so browsers see slot
// availability and order status move in real time. It never touches
// capacity itself; everything here is a cache hint, at-least-once.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// Route decides which pub/sub channel an event belongs on. Empty channel
// means the event is not for clients.
func Route(env orders.Envelope) (channel string, ok bool) {
	switch env.EventType {
	case orders.EventSlotCapacityChanged:
		return fmt.Sprintf(redisx.ChanSlot, env.CorrelationID), true
	case orders.EventOrderPlaced, orders.EventOrderStatusChanged, orders.EventOrderCancelled:
		return fmt.Sprintf(redisx.ChanOrder, env.CorrelationID), true
	default:
		return "", false
	}
}

// HandleEvent is the consumer handler for all three topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	ch, ok := Route(env)
	if !ok {
		return nil // unknown event type, commit and move on
	}

	// dedup by event id so redelivery does not re-broadcast
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	s.refreshCaches(ctx, env)

	return s.Redis.Publish(ctx, ch, m.Value).Err()
}

// refreshCaches keeps the read-side keys warm so polling clients get the
// same numbers the push saw. Failures are ignored; Postgres stays the
// source of truth.
func (s *Service) refreshCaches(ctx context.Context, env orders.Envelope) {
	switch env.EventType {
	case orders.EventSlotCapacityChanged:
		p, err := kafkax.UnwrapPayload[orders.SlotCapacityChangedPayload](env.Payload)
		if err != nil {
			return
		}
		key := fmt.Sprintf(redisx.KeySlotCommitted, p.TimeSlotID)
		_ = s.Redis.Set(ctx, key, p.Committed, redisx.TTLSlotCache).Err()
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return
		}
		key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
		_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, p.To), redisx.TTLStatusCache).Err()
	case orders.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		if err != nil {
			return
		}
		key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
		_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, orders.StatusCancelled), redisx.TTLStatusCache).Err()
	}
}
