package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrNotFound  = errors.New("catalog: not found")
	ErrDayExists = errors.New("catalog: pizza day already exists for that date")
	// ErrSlotInUse guards against deleting a slot that still backs orders.
	ErrSlotInUse     = errors.New("catalog: slot has committed capacity")
	ErrCategoryInUse = errors.New("catalog: category still has menu items")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ---- pizza days ----

type PizzaDayInput struct {
	Date   time.Time
	Active bool
	Note   *string
}

func (r *Repo) CreatePizzaDay(ctx context.Context, in PizzaDayInput) (PizzaDay, error) {
	d := PizzaDay{ID: uuid.NewString(), Date: in.Date, Active: in.Active, Note: in.Note}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO pizza_days(id, date, active, note)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, d.ID, d.Date, d.Active, d.Note).Scan(&d.CreatedAt)
	if isUniqueViolation(err) {
		return PizzaDay{}, ErrDayExists
	}
	if err != nil {
		return PizzaDay{}, err
	}
	return d, nil
}

func (r *Repo) UpdatePizzaDay(ctx context.Context, id string, in PizzaDayInput) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE pizza_days SET date=$2, active=$3, note=$4 WHERE id=$1`,
		id, in.Date, in.Active, in.Note)
	if isUniqueViolation(err) {
		return ErrDayExists
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeletePizzaDay(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM pizza_days WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetPizzaDay(ctx context.Context, id string) (PizzaDay, error) {
	var d PizzaDay
	err := r.DB.QueryRow(ctx, `
		SELECT id, date, active, note, created_at FROM pizza_days WHERE id=$1`, id).
		Scan(&d.ID, &d.Date, &d.Active, &d.Note, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PizzaDay{}, ErrNotFound
	}
	return d, err
}

func (r *Repo) ListPizzaDays(ctx context.Context) ([]PizzaDay, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, date, active, note, created_at
		FROM pizza_days ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDays(rows)
}

// UpcomingPizzaDays is the storefront query: active days from today on,
// soonest first.
func (r *Repo) UpcomingPizzaDays(ctx context.Context, today time.Time) ([]PizzaDay, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, date, active, note, created_at
		FROM pizza_days
		WHERE active AND date >= $1
		ORDER BY date ASC`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDays(rows)
}

func scanDays(rows pgx.Rows) ([]PizzaDay, error) {
	var out []PizzaDay
	for rows.Next() {
		var d PizzaDay
		if err := rows.Scan(&d.ID, &d.Date, &d.Active, &d.Note, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- time slots ----

type TimeSlotInput struct {
	PizzaDayID string
	TimeFrom   string
	TimeTo     string
	MaxPizzas  int
	IsOpen     bool
}

// CreateTimeSlot starts the slot with zero committed capacity; only the
// booking engine moves the counter afterwards.
func (r *Repo) CreateTimeSlot(ctx context.Context, in TimeSlotInput) (TimeSlot, error) {
	s := TimeSlot{
		ID:         uuid.NewString(),
		PizzaDayID: in.PizzaDayID,
		TimeFrom:   in.TimeFrom,
		TimeTo:     in.TimeTo,
		MaxPizzas:  in.MaxPizzas,
		IsOpen:     in.IsOpen,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO time_slots(id, pizza_day_id, time_from, time_to, max_pizzas, current_pizza_count, is_open)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING created_at`,
		s.ID, s.PizzaDayID, s.TimeFrom, s.TimeTo, s.MaxPizzas, s.IsOpen).Scan(&s.CreatedAt)
	if isFKViolation(err) {
		return TimeSlot{}, ErrNotFound
	}
	if err != nil {
		return TimeSlot{}, err
	}
	return s, nil
}

// UpdateTimeSlot deliberately leaves current_pizza_count alone.
func (r *Repo) UpdateTimeSlot(ctx context.Context, id string, in TimeSlotInput) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE time_slots SET time_from=$2, time_to=$3, max_pizzas=$4, is_open=$5
		WHERE id=$1`, id, in.TimeFrom, in.TimeTo, in.MaxPizzas, in.IsOpen)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteTimeSlot(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM time_slots WHERE id=$1 AND current_pizza_count = 0`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_slots WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrSlotInUse
	}
	return ErrNotFound
}

func (r *Repo) GetTimeSlot(ctx context.Context, id string) (TimeSlot, error) {
	var s TimeSlot
	err := r.DB.QueryRow(ctx, `
		SELECT id, pizza_day_id, time_from, time_to, max_pizzas, current_pizza_count, is_open, created_at
		FROM time_slots WHERE id=$1`, id).
		Scan(&s.ID, &s.PizzaDayID, &s.TimeFrom, &s.TimeTo, &s.MaxPizzas, &s.CurrentPizzaCount, &s.IsOpen, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeSlot{}, ErrNotFound
	}
	return s, err
}

func (r *Repo) ListTimeSlots(ctx context.Context, pizzaDayID string) ([]TimeSlot, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, pizza_day_id, time_from, time_to, max_pizzas, current_pizza_count, is_open, created_at
		FROM time_slots WHERE pizza_day_id=$1 ORDER BY time_from ASC`, pizzaDayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeSlot
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s.ID, &s.PizzaDayID, &s.TimeFrom, &s.TimeTo, &s.MaxPizzas, &s.CurrentPizzaCount, &s.IsOpen, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
