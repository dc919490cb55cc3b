package orders

const (
	TopicOrderPlaced  = "pizza.order.placed"
	TopicOrderStatus  = "pizza.order.status"
	TopicSlotCapacity = "pizza.slot.capacity"
)

// Partition key = order_id (or slot_id for capacity events), so events for
// the same entity keep their order.
func PartitionKey(id string) []byte { return []byte(id) }
