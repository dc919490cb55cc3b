package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced         = "OrderPlaced"
	EventOrderStatusChanged  = "OrderStatusChanged"
	EventOrderCancelled      = "OrderCancelled"
	EventSlotCapacityChanged = "SlotCapacityChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "pizza-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id or slot_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- per-event payloads ----

type OrderPlacedPayload struct {
	OrderID    string `json:"order_id"`
	TimeSlotID string `json:"time_slot_id"`
	PizzaDayID string `json:"pizza_day_id"`
	PizzaCount int    `json:"pizza_count"`
	TotalCents int    `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type OrderCancelledPayload struct {
	OrderID    string `json:"order_id"`
	TimeSlotID string `json:"time_slot_id"`
	// Released is the capacity given back; zero when the reservation was
	// already released (double cancel)
	Released int `json:"released"`
}

type SlotCapacityChangedPayload struct {
	TimeSlotID string `json:"time_slot_id"`
	PizzaDayID string `json:"pizza_day_id,omitempty"`
	Committed  int    `json:"committed"`
}
