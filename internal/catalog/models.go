package catalog

import "time"

type PizzaDay struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Active    bool      `json:"active"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TimeSlot struct {
	ID                string    `json:"id"`
	PizzaDayID        string    `json:"pizza_day_id"`
	TimeFrom          string    `json:"time_from"` // "17:00"
	TimeTo            string    `json:"time_to"`
	MaxPizzas         int       `json:"max_pizzas"`
	CurrentPizzaCount int       `json:"current_pizza_count"` // written only by the booking engine
	IsOpen            bool      `json:"is_open"`
	CreatedAt         time.Time `json:"created_at"`
}

// Remaining is what the storefront shows next to the slot.
func (s TimeSlot) Remaining() int { return s.MaxPizzas - s.CurrentPizzaCount }

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	// CountsCapacity marks categories whose items consume slot capacity
	// (pizzas). Toppings and sides leave it false.
	CountsCapacity bool      `json:"counts_capacity"`
	CreatedAt      time.Time `json:"created_at"`
}

type MenuItem struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	WeightGrams *int      `json:"weight_grams,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Active      bool      `json:"active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}
