package redisx

import "time"

const (
	// Cache order status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache slot usage: slot_committed:{slot_id} -> committed units; clients
	// compute remaining against the slot's published capacity
	KeySlotCommitted = "slot_committed:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channels for connected clients. Hints only; clients re-read
	// on reconnect.
	ChanSlot  = "slot:%s"
	ChanOrder = "order:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLSlotCache   = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
