package orders

import "time"

type Order struct {
	ID              string    `json:"id"`
	TimeSlotID      string    `json:"time_slot_id"`
	PizzaDayID      string    `json:"pizza_day_id"` // denormalized for admin queries
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerEmail   *string   `json:"customer_email,omitempty"`
	CustomerAddress *string   `json:"customer_address,omitempty"`
	CustomerNote    *string   `json:"customer_note,omitempty"`
	Status          Status    `json:"status"`
	TotalCents      int       `json:"total_cents"`
	PizzaCount      int       `json:"pizza_count"` // equals the capacity reserved for this order
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	MenuItemID string `json:"menu_item_id"`
	// ItemName and ItemPriceCents are copied from the menu at checkout so the
	// order survives later menu edits.
	ItemName       string `json:"item_name"`
	ItemPriceCents int    `json:"item_price_cents"`
	Quantity       int    `json:"quantity"`
}

// SlotReservation ties an order to the capacity it committed. The RESERVED ->
// RELEASED flip is the exactly-once gate for freeing that capacity.
type SlotReservation struct {
	OrderID    string    `json:"order_id"`
	TimeSlotID string    `json:"time_slot_id"`
	PizzaCount int       `json:"pizza_count"`
	Status     string    `json:"status"` // RESERVED | RELEASED
	CreatedAt  time.Time `json:"created_at"`
}

const (
	ReservationReserved = "RESERVED"
	ReservationReleased = "RELEASED"
)

type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[Status]int `json:"by_status"`
	RevenueCents   int            `json:"revenue_cents"` // cancelled orders excluded
	PizzasReserved int            `json:"pizzas_reserved"`
}
