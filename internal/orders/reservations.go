package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
)

// The engine does not remember per-order amounts, so the ledger does: one
// reservation row per order records what was committed and whether it has
// been given back. Release always reads the amount from here, never from
// the caller.

func insertReservation(ctx context.Context, tx pgx.Tx, orderID, slotID string, pizzaCount int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO slot_reservations(order_id, time_slot_id, pizza_count, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO NOTHING`,
		orderID, slotID, pizzaCount, ReservationReserved)
	return err
}

// releaseReservation flips RESERVED -> RELEASED and decrements the slot in
// the same transaction. A second call for the same order finds no RESERVED
// row and frees nothing.
func releaseReservation(ctx context.Context, tx pgx.Tx, orderID string) (CancelResult, error) {
	var res CancelResult
	err := tx.QueryRow(ctx, `
		UPDATE slot_reservations SET status=$2
		WHERE order_id=$1 AND status=$3
		RETURNING time_slot_id, pizza_count`,
		orderID, ReservationReleased, ReservationReserved).Scan(&res.TimeSlotID, &res.Released)
	if errors.Is(err, pgx.ErrNoRows) {
		// already released, nothing to free
		return CancelResult{}, nil
	}
	if err != nil {
		return CancelResult{}, err
	}

	eng := booking.NewPGEngine(tx)
	committed, err := eng.Release(ctx, res.TimeSlotID, res.Released)
	if err != nil {
		// ErrOverRelease here means the counter and the ledger disagree;
		// roll back and let the caller log it as a consistency fault
		return CancelResult{}, err
	}
	res.Committed = committed
	return res, nil
}

// GetReservation exposes the ledger row for admin inspection.
func (r *Repo) GetReservation(ctx context.Context, orderID string) (SlotReservation, error) {
	var sr SlotReservation
	err := r.DB.QueryRow(ctx, `
		SELECT order_id, time_slot_id, pizza_count, status, created_at
		FROM slot_reservations WHERE order_id=$1`, orderID).
		Scan(&sr.OrderID, &sr.TimeSlotID, &sr.PizzaCount, &sr.Status, &sr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SlotReservation{}, ErrNotFound
	}
	return sr, err
}
