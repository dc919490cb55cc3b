package orders

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxToppingsPerPizza caps extras so a three-pizza order cannot drown the
// kitchen in toppings.
const MaxToppingsPerPizza = 3

var phoneRE = regexp.MustCompile(`^(\+421|0)[0-9 ]{8,12}$`)

type CheckoutItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type CheckoutInput struct {
	TimeSlotID      string         `json:"time_slot_id"`
	PizzaDayID      string         `json:"pizza_day_id"`
	CustomerName    string         `json:"customer_name"`
	CustomerPhone   string         `json:"customer_phone"`
	CustomerEmail   *string        `json:"customer_email,omitempty"`
	CustomerAddress *string        `json:"customer_address,omitempty"`
	CustomerNote    *string        `json:"customer_note,omitempty"`
	Items           []CheckoutItem `json:"items"`
}

// Validate covers request shape only; prices and capacity rules need the
// catalog and are checked in the repo.
func (in CheckoutInput) Validate() error {
	if in.TimeSlotID == "" || in.PizzaDayID == "" {
		return errors.New("time_slot_id and pizza_day_id are required")
	}
	if len(in.CustomerName) < 2 || len(in.CustomerName) > 100 {
		return errors.New("customer_name must be 2-100 characters")
	}
	if !phoneRE.MatchString(in.CustomerPhone) {
		return errors.New("customer_phone is not a valid phone number")
	}
	if in.CustomerNote != nil && len(*in.CustomerNote) > 500 {
		return errors.New("customer_note is too long")
	}
	if len(in.Items) == 0 {
		return errors.New("order has no items")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if it.MenuItemID == "" {
			return errors.New("item without menu_item_id")
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("invalid quantity for item %s", it.MenuItemID)
		}
		if seen[it.MenuItemID] {
			return fmt.Errorf("duplicate item %s", it.MenuItemID)
		}
		seen[it.MenuItemID] = true
	}
	return nil
}

// PricedLine is a checkout item joined with its menu price and category.
type PricedLine struct {
	MenuItemID     string
	Name           string
	PriceCents     int
	Quantity       int
	CountsCapacity bool
}

// Quote is what checkout reserves and charges. PizzaCount is the amount of
// slot capacity the order consumes; toppings and sides never count.
type Quote struct {
	Lines        []PricedLine
	TotalCents   int
	PizzaCount   int
	ToppingCount int
}

func Totalize(lines []PricedLine) Quote {
	q := Quote{Lines: lines}
	for _, l := range lines {
		q.TotalCents += l.PriceCents * l.Quantity
		if l.CountsCapacity {
			q.PizzaCount += l.Quantity
		} else {
			q.ToppingCount += l.Quantity
		}
	}
	return q
}

var (
	ErrNoPizzas        = errors.New("orders: order contains no pizzas")
	ErrTooManyToppings = fmt.Errorf("orders: more than %d toppings per pizza", MaxToppingsPerPizza)
)

// CheckQuote enforces the cart-level business rules: at least one pizza, and
// a bounded number of extras per pizza.
func CheckQuote(q Quote) error {
	if q.PizzaCount <= 0 {
		return ErrNoPizzas
	}
	if q.ToppingCount > q.PizzaCount*MaxToppingsPerPizza {
		return ErrTooManyToppings
	}
	return nil
}
