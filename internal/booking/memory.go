package booking

import (
	"context"
	"sync"
)

type memSlot struct {
	mu        sync.Mutex
	capacity  int
	committed int
	open      bool
}

// MemEngine keeps per-slot counters behind per-slot mutexes. Used by tests
// and by single-process deployments that flush to durable storage elsewhere.
// Operations on different slots never contend.
type MemEngine struct {
	mu    sync.RWMutex // guards the map, not the counters
	slots map[string]*memSlot
}

func NewMemEngine() *MemEngine {
	return &MemEngine{slots: make(map[string]*memSlot)}
}

// AddSlot registers a slot with zero committed capacity. Re-adding an
// existing id resets it.
func (e *MemEngine) AddSlot(slotID string, capacity int, open bool) {
	e.mu.Lock()
	e.slots[slotID] = &memSlot{capacity: capacity, open: open}
	e.mu.Unlock()
}

// SetOpen flips the admin kill-switch; committed capacity is untouched.
func (e *MemEngine) SetOpen(slotID string, open bool) bool {
	s := e.slot(slotID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
	return true
}

// Snapshot reports (capacity, committed, open) for inspection.
func (e *MemEngine) Snapshot(slotID string) (capacity, committed int, open, ok bool) {
	s := e.slot(slotID)
	if s == nil {
		return 0, 0, false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity, s.committed, s.open, true
}

func (e *MemEngine) slot(slotID string) *memSlot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slots[slotID]
}

func (e *MemEngine) Reserve(ctx context.Context, slotID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidCount
	}
	s := e.slot(slotID)
	if s == nil {
		return 0, ErrSlotNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrSlotClosed
	}
	if s.committed+qty > s.capacity {
		return 0, &InsufficientCapacityError{SlotID: slotID, Requested: qty, Remaining: s.capacity - s.committed}
	}
	s.committed += qty
	return s.committed, nil
}

func (e *MemEngine) Release(ctx context.Context, slotID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidCount
	}
	s := e.slot(slotID)
	if s == nil {
		return 0, ErrSlotNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty > s.committed {
		return 0, ErrOverRelease
	}
	s.committed -= qty
	return s.committed, nil
}
