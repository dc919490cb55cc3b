package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestReserveRejectsWithRemaining(t *testing.T) {
	e := NewMemEngine()
	e.AddSlot("s1", 10, true)

	if _, err := e.Reserve(context.Background(), "s1", 8); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}

	_, err := e.Reserve(context.Background(), "s1", 3)
	var ice *InsufficientCapacityError
	if !errors.As(err, &ice) {
		t.Fatalf("want InsufficientCapacityError, got %v", err)
	}
	if ice.Remaining != 2 || ice.Requested != 3 {
		t.Errorf("remaining=%d requested=%d, want 2/3", ice.Remaining, ice.Requested)
	}

	if n, err := e.Reserve(context.Background(), "s1", 2); err != nil || n != 10 {
		t.Fatalf("reserve 2: n=%d err=%v", n, err)
	}

	_, err = e.Reserve(context.Background(), "s1", 1)
	if !errors.As(err, &ice) || ice.Remaining != 0 {
		t.Errorf("full slot should reject with remaining 0, got %v", err)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	e := NewMemEngine()
	e.AddSlot("s1", 10, true)

	if _, err := e.Reserve(context.Background(), "s1", 6); err != nil {
		t.Fatal(err)
	}
	if n, err := e.Release(context.Background(), "s1", 4); err != nil || n != 2 {
		t.Fatalf("release 4: n=%d err=%v", n, err)
	}
	if n, err := e.Release(context.Background(), "s1", 2); err != nil || n != 0 {
		t.Fatalf("release 2: n=%d err=%v", n, err)
	}
	if _, _, _, ok := e.Snapshot("s1"); !ok {
		t.Fatal("slot vanished")
	}
}

func TestOverRelease(t *testing.T) {
	e := NewMemEngine()
	e.AddSlot("s1", 5, true)

	if _, err := e.Reserve(context.Background(), "s1", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Release(context.Background(), "s1", 3); err != nil {
		t.Fatal(err)
	}
	// second release of the same amount must not drive the count negative
	if _, err := e.Release(context.Background(), "s1", 3); !errors.Is(err, ErrOverRelease) {
		t.Fatalf("want ErrOverRelease, got %v", err)
	}
	if _, committed, _, _ := e.Snapshot("s1"); committed != 0 {
		t.Errorf("committed = %d, want 0", committed)
	}
}

func TestClosedSlotAlwaysRejects(t *testing.T) {
	e := NewMemEngine()
	e.AddSlot("s1", 100, false)

	if _, err := e.Reserve(context.Background(), "s1", 1); !errors.Is(err, ErrSlotClosed) {
		t.Fatalf("want ErrSlotClosed, got %v", err)
	}
	e.SetOpen("s1", true)
	if _, err := e.Reserve(context.Background(), "s1", 1); err != nil {
		t.Fatalf("reopened slot should accept: %v", err)
	}
	e.SetOpen("s1", false)
	if _, err := e.Reserve(context.Background(), "s1", 1); !errors.Is(err, ErrSlotClosed) {
		t.Fatalf("want ErrSlotClosed after closing, got %v", err)
	}
}

func TestUnknownSlotAndBadCount(t *testing.T) {
	e := NewMemEngine()
	if _, err := e.Reserve(context.Background(), "nope", 1); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want ErrSlotNotFound, got %v", err)
	}
	if _, err := e.Release(context.Background(), "nope", 1); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("want ErrSlotNotFound, got %v", err)
	}
	e.AddSlot("s1", 5, true)
	for _, qty := range []int{0, -1} {
		if _, err := e.Reserve(context.Background(), "s1", qty); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("Reserve(%d): want ErrInvalidCount, got %v", qty, err)
		}
		if _, err := e.Release(context.Background(), "s1", qty); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("Release(%d): want ErrInvalidCount, got %v", qty, err)
		}
	}
}

// N goroutines race for K units; exactly K may win and the count must end
// at K. This is the no-lost-update property the whole system hangs on.
func TestConcurrentReserveNoLostUpdates(t *testing.T) {
	const (
		capacity = 10
		callers  = 100
	)
	e := NewMemEngine()
	e.AddSlot("s1", capacity, true)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		rejects   int
		badErrors []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Reserve(context.Background(), "s1", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.As(err, new(*InsufficientCapacityError)):
				rejects++
			default:
				badErrors = append(badErrors, err)
			}
		}()
	}
	wg.Wait()

	if len(badErrors) > 0 {
		t.Fatalf("unexpected errors: %v", badErrors)
	}
	if wins != capacity || rejects != callers-capacity {
		t.Errorf("wins=%d rejects=%d, want %d/%d", wins, rejects, capacity, callers-capacity)
	}
	if _, committed, _, _ := e.Snapshot("s1"); committed != capacity {
		t.Errorf("final committed = %d, want %d", committed, capacity)
	}
}

// Interleaved reserve/release churn must never push the count outside
// [0, capacity].
func TestConcurrentChurnHoldsInvariant(t *testing.T) {
	const capacity = 8
	e := NewMemEngine()
	e.AddSlot("s1", capacity, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := e.Reserve(context.Background(), "s1", 2); err == nil {
					if _, err := e.Release(context.Background(), "s1", 2); err != nil {
						t.Errorf("release after own reserve: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if _, committed, _, _ := e.Snapshot("s1"); committed != 0 {
		t.Errorf("committed = %d after balanced churn, want 0", committed)
	}
}

func TestCancellationScenario(t *testing.T) {
	// order with pizza_count=4 on a slot with 6 committed; cancelling brings
	// the slot to 2
	e := NewMemEngine()
	e.AddSlot("s1", 10, true)
	if _, err := e.Reserve(context.Background(), "s1", 6); err != nil {
		t.Fatal(err)
	}
	n, err := e.Release(context.Background(), "s1", 4)
	if err != nil || n != 2 {
		t.Fatalf("release 4: n=%d err=%v", n, err)
	}
}
