package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrNotFound        = errors.New("orders: order not found")
	ErrUnknownMenuItem = errors.New("orders: menu item not found or inactive")
	ErrBadTransition   = errors.New("orders: invalid status transition")
)

// PriceCheckout joins the cart against the live menu. Prices always come
// from the catalog, never from the client.
func (r *Repo) PriceCheckout(ctx context.Context, items []CheckoutItem) (Quote, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuItemID)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT m.id, m.name, m.price_cents, c.counts_capacity
		FROM menu_items m
		JOIN categories c ON c.id = m.category_id
		WHERE m.active AND m.id = ANY($1)`, ids)
	if err != nil {
		return Quote{}, err
	}
	defer rows.Close()

	type menuRow struct {
		name           string
		priceCents     int
		countsCapacity bool
	}
	menu := make(map[string]menuRow, len(ids))
	for rows.Next() {
		var id string
		var m menuRow
		if err := rows.Scan(&id, &m.name, &m.priceCents, &m.countsCapacity); err != nil {
			return Quote{}, err
		}
		menu[id] = m
	}
	if err := rows.Err(); err != nil {
		return Quote{}, err
	}

	lines := make([]PricedLine, 0, len(items))
	for _, it := range items {
		m, ok := menu[it.MenuItemID]
		if !ok {
			return Quote{}, fmt.Errorf("%w: %s", ErrUnknownMenuItem, it.MenuItemID)
		}
		lines = append(lines, PricedLine{
			MenuItemID:     it.MenuItemID,
			Name:           m.name,
			PriceCents:     m.priceCents,
			Quantity:       it.Quantity,
			CountsCapacity: m.countsCapacity,
		})
	}
	return Totalize(lines), nil
}

// CreateOrder writes the order, its line items and the reservation row in
// one transaction. The slot increment already happened via the booking
// engine; callers must release it if this returns an error.
func (r *Repo) CreateOrder(ctx context.Context, in CheckoutInput, q Quote) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := Order{
		ID:              uuid.NewString(),
		TimeSlotID:      in.TimeSlotID,
		PizzaDayID:      in.PizzaDayID,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerEmail:   in.CustomerEmail,
		CustomerAddress: in.CustomerAddress,
		CustomerNote:    in.CustomerNote,
		Status:          StatusNew,
		TotalCents:      q.TotalCents,
		PizzaCount:      q.PizzaCount,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, time_slot_id, pizza_day_id, customer_name, customer_phone,
		                   customer_email, customer_address, customer_note, status, total_cents, pizza_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		o.ID, o.TimeSlotID, o.PizzaDayID, o.CustomerName, o.CustomerPhone,
		o.CustomerEmail, o.CustomerAddress, o.CustomerNote, o.Status, o.TotalCents, o.PizzaCount).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, l := range q.Lines {
		item := OrderItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			MenuItemID:     l.MenuItemID,
			ItemName:       l.Name,
			ItemPriceCents: l.PriceCents,
			Quantity:       l.Quantity,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, menu_item_id, item_name, item_price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, item.OrderID, item.MenuItemID, item.ItemName, item.ItemPriceCents, item.Quantity); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}

	if err := insertReservation(ctx, tx, o.ID, o.TimeSlotID, o.PizzaCount); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, time_slot_id, pizza_day_id, customer_name, customer_phone,
		       customer_email, customer_address, customer_note, status, total_cents, pizza_count,
		       created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.TimeSlotID, &o.PizzaDayID, &o.CustomerName, &o.CustomerPhone,
			&o.CustomerEmail, &o.CustomerAddress, &o.CustomerNote, &o.Status, &o.TotalCents, &o.PizzaCount,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, menu_item_id, item_name, item_price_cents, quantity
		FROM order_items WHERE order_id=$1 ORDER BY item_name`, orderID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.ItemName, &it.ItemPriceCents, &it.Quantity); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

type ListFilter struct {
	PizzaDayID string
	Status     Status
	Search     string // matches customer name or phone
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	q := `
		SELECT id, time_slot_id, pizza_day_id, customer_name, customer_phone,
		       customer_email, customer_address, customer_note, status, total_cents, pizza_count,
		       created_at, updated_at
		FROM orders WHERE 1=1`
	args := []any{}
	if f.PizzaDayID != "" {
		args = append(args, f.PizzaDayID)
		q += fmt.Sprintf(" AND pizza_day_id=$%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		q += fmt.Sprintf(" AND (customer_name ILIKE $%d OR customer_phone ILIKE $%d)", len(args), len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TimeSlotID, &o.PizzaDayID, &o.CustomerName, &o.CustomerPhone,
			&o.CustomerEmail, &o.CustomerAddress, &o.CustomerNote, &o.Status, &o.TotalCents, &o.PizzaCount,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus moves an order along the happy path. Cancellation goes
// through CancelOrder because it also frees capacity.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status) (Status, error) {
	if to == StatusCancelled {
		return "", fmt.Errorf("%w: use CancelOrder for cancellation", ErrBadTransition)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, to); err != nil {
		return from, err
	}
	return from, tx.Commit(ctx)
}

// CancelResult reports what a cancellation or deletion freed.
type CancelResult struct {
	TimeSlotID string
	Released   int // capacity units given back; 0 if already released
	Committed  int // slot's committed count after the release
}

// CancelOrder flips the order to cancelled and releases its reserved
// capacity, all in one transaction. The reservation-row status gate makes
// the release exactly-once no matter how many cancel calls race.
func (r *Repo) CancelOrder(ctx context.Context, orderID string) (CancelResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CancelResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return CancelResult{}, ErrNotFound
	}
	if err != nil {
		return CancelResult{}, err
	}
	if !CanTransition(from, StatusCancelled) {
		return CancelResult{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, StatusCancelled)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, StatusCancelled); err != nil {
		return CancelResult{}, err
	}

	res, err := releaseReservation(ctx, tx, orderID)
	if err != nil {
		return CancelResult{}, err
	}
	return res, tx.Commit(ctx)
}

// DeleteOrder removes the order and (when it was never cancelled) gives the
// capacity back first, so deleting a live order cannot strand slot capacity.
func (r *Repo) DeleteOrder(ctx context.Context, orderID string) (CancelResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CancelResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return CancelResult{}, ErrNotFound
	}
	if err != nil {
		return CancelResult{}, err
	}

	res, err := releaseReservation(ctx, tx, orderID)
	if err != nil {
		return CancelResult{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return CancelResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM slot_reservations WHERE order_id=$1`, orderID); err != nil {
		return CancelResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
		return CancelResult{}, err
	}
	return res, tx.Commit(ctx)
}

func (r *Repo) StatsByDay(ctx context.Context, pizzaDayID string) (Stats, error) {
	q := `SELECT status, COUNT(*), COALESCE(SUM(total_cents),0), COALESCE(SUM(pizza_count),0) FROM orders`
	args := []any{}
	if pizzaDayID != "" {
		q += ` WHERE pizza_day_id=$1`
		args = append(args, pizzaDayID)
	}
	q += ` GROUP BY status`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	st := Stats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var s Status
		var count, cents, pizzas int
		if err := rows.Scan(&s, &count, &cents, &pizzas); err != nil {
			return Stats{}, err
		}
		st.Total += count
		st.ByStatus[s] = count
		if s != StatusCancelled {
			st.RevenueCents += cents
			st.PizzasReserved += pizzas
		}
	}
	return st, rows.Err()
}

// interface check: the repo's transactions feed the engine directly
var _ booking.Querier = (pgx.Tx)(nil)
