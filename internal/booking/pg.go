package booking

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool / pgx.Tx the engine needs, so the
// same code runs standalone or inside a caller's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGEngine enforces the capacity invariant with a single conditional UPDATE;
// Postgres row locking makes the check-then-increment atomic per slot.
type PGEngine struct{ DB Querier }

func NewPGEngine(db Querier) *PGEngine { return &PGEngine{DB: db} }

func (e *PGEngine) Reserve(ctx context.Context, slotID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidCount
	}
	var committed int
	err := e.DB.QueryRow(ctx, `
		UPDATE time_slots
		SET current_pizza_count = current_pizza_count + $2
		WHERE id = $1 AND is_open AND current_pizza_count + $2 <= max_pizzas
		RETURNING current_pizza_count`, slotID, qty).Scan(&committed)
	if err == nil {
		return committed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	return 0, e.classifyReject(ctx, slotID, qty)
}

// classifyReject re-reads the slot to turn a zero-row UPDATE into a typed
// rejection. The read is not part of the atomic step; it only shapes the
// error message, the invariant was already enforced by the UPDATE guard.
func (e *PGEngine) classifyReject(ctx context.Context, slotID string, qty int) error {
	var (
		isOpen        bool
		maxPizzas     int
		currentPizzas int
	)
	err := e.DB.QueryRow(ctx, `
		SELECT is_open, max_pizzas, current_pizza_count
		FROM time_slots WHERE id = $1`, slotID).Scan(&isOpen, &maxPizzas, &currentPizzas)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}
	if !isOpen {
		return ErrSlotClosed
	}
	return &InsufficientCapacityError{SlotID: slotID, Requested: qty, Remaining: maxPizzas - currentPizzas}
}

func (e *PGEngine) Release(ctx context.Context, slotID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidCount
	}
	var committed int
	err := e.DB.QueryRow(ctx, `
		UPDATE time_slots
		SET current_pizza_count = current_pizza_count - $2
		WHERE id = $1 AND current_pizza_count >= $2
		RETURNING current_pizza_count`, slotID, qty).Scan(&committed)
	if err == nil {
		return committed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	// zero rows: either the slot is gone or the decrement would go negative
	var exists bool
	if err := e.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrSlotNotFound
	}
	return 0, ErrOverRelease
}
