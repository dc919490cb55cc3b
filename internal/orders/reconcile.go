package orders

import (
	"context"
	"log"
	"time"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
)

// A checkout that reserves capacity and then dies before the order row lands
// leaks committed units. The sweep finds slots whose counter exceeds the sum
// of their RESERVED rows and gives the difference back. Drift is only
// repaired when it is observed twice, a grace period apart, so an in-flight
// checkout between Reserve and CreateOrder is never mistaken for a leak.

type Drift struct {
	TimeSlotID string
	Committed  int // slot counter
	Reserved   int // sum of RESERVED ledger rows
}

func (d Drift) Leak() int { return d.Committed - d.Reserved }

func (r *Repo) SlotDrift(ctx context.Context) ([]Drift, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT s.id, s.current_pizza_count,
		       COALESCE(SUM(sr.pizza_count) FILTER (WHERE sr.status = 'RESERVED'), 0)
		FROM time_slots s
		LEFT JOIN slot_reservations sr ON sr.time_slot_id = s.id
		GROUP BY s.id, s.current_pizza_count
		HAVING s.current_pizza_count <> COALESCE(SUM(sr.pizza_count) FILTER (WHERE sr.status = 'RESERVED'), 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.TimeSlotID, &d.Committed, &d.Reserved); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// StableDrifts keeps only the drifts present with identical numbers in both
// observations.
func StableDrifts(first, second []Drift) []Drift {
	prev := make(map[string]Drift, len(first))
	for _, d := range first {
		prev[d.TimeSlotID] = d
	}
	var out []Drift
	for _, d := range second {
		if p, ok := prev[d.TimeSlotID]; ok && p == d {
			out = append(out, d)
		}
	}
	return out
}

type Reconciler struct {
	Repo   *Repo
	Engine booking.Engine
	Grace  time.Duration // wait between the two drift observations
}

// SweepOnce repairs leaks that survived the grace period. Negative drift
// (counter below the ledger) is a consistency fault; it is logged loudly and
// left for manual reconciliation, never papered over.
func (rc *Reconciler) SweepOnce(ctx context.Context) error {
	first, err := rc.Repo.SlotDrift(ctx)
	if err != nil {
		return err
	}
	if len(first) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rc.Grace):
	}

	second, err := rc.Repo.SlotDrift(ctx)
	if err != nil {
		return err
	}

	for _, d := range StableDrifts(first, second) {
		leak := d.Leak()
		if leak < 0 {
			log.Printf("CONSISTENCY FAULT: slot %s counter %d below reserved sum %d; manual reconciliation required",
				d.TimeSlotID, d.Committed, d.Reserved)
			continue
		}
		committed, err := rc.Engine.Release(ctx, d.TimeSlotID, leak)
		if err != nil {
			log.Printf("reconcile: release %d on slot %s: %v", leak, d.TimeSlotID, err)
			continue
		}
		log.Printf("reconcile: reclaimed %d leaked units on slot %s (committed now %d)", leak, d.TimeSlotID, committed)
	}
	return nil
}

// Run sweeps on a ticker until the context ends.
func (rc *Reconciler) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := rc.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("reconcile sweep: %v", err)
			}
		}
	}
}
