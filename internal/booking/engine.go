package booking

import (
	"context"
	"errors"
	"fmt"
)

// Engine owns a slot's committed pizza count. Nothing else may write it;
// catalog code treats the field as read-only.
type Engine interface {
	// Reserve commits qty capacity units against the slot and returns the
	// slot's new committed count. Check and increment are a single atomic
	// step per slot.
	Reserve(ctx context.Context, slotID string, qty int) (int, error)

	// Release returns qty units to the slot and reports the new committed
	// count. A release that would drive the count below zero fails with
	// ErrOverRelease instead of clamping.
	Release(ctx context.Context, slotID string, qty int) (int, error)
}

var (
	ErrSlotNotFound = errors.New("booking: slot not found")
	ErrSlotClosed   = errors.New("booking: slot closed")
	ErrOverRelease  = errors.New("booking: release exceeds committed count")
	ErrInvalidCount = errors.New("booking: count must be positive")
)

// InsufficientCapacityError carries the remaining capacity at rejection time
// so callers can tell the customer how many pizzas still fit.
type InsufficientCapacityError struct {
	SlotID    string
	Requested int
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("booking: slot %s has %d remaining, requested %d", e.SlotID, e.Remaining, e.Requested)
}
