package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ---- categories ----

type CategoryInput struct {
	Name           string
	SortOrder      int
	CountsCapacity bool
}

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	c := Category{ID: uuid.NewString(), Name: in.Name, SortOrder: in.SortOrder, CountsCapacity: in.CountsCapacity}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO categories(id, name, sort_order, counts_capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, c.ID, c.Name, c.SortOrder, c.CountsCapacity).Scan(&c.CreatedAt)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id string, in CategoryInput) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE categories SET name=$2, sort_order=$3, counts_capacity=$4 WHERE id=$1`,
		id, in.Name, in.SortOrder, in.CountsCapacity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if isFKViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, sort_order, counts_capacity, created_at
		FROM categories ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CountsCapacity, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- menu items ----

type MenuItemInput struct {
	CategoryID  string
	Name        string
	Description *string
	PriceCents  int
	WeightGrams *int
	ImageURL    *string
	Active      bool
	SortOrder   int
}

func (r *Repo) CreateMenuItem(ctx context.Context, in MenuItemInput) (MenuItem, error) {
	m := MenuItem{
		ID:          uuid.NewString(),
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		WeightGrams: in.WeightGrams,
		ImageURL:    in.ImageURL,
		Active:      in.Active,
		SortOrder:   in.SortOrder,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO menu_items(id, category_id, name, description, price_cents, weight_grams, image_url, active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		m.ID, m.CategoryID, m.Name, m.Description, m.PriceCents, m.WeightGrams, m.ImageURL, m.Active, m.SortOrder).
		Scan(&m.CreatedAt)
	if isFKViolation(err) {
		return MenuItem{}, ErrNotFound
	}
	if err != nil {
		return MenuItem{}, err
	}
	return m, nil
}

func (r *Repo) UpdateMenuItem(ctx context.Context, id string, in MenuItemInput) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE menu_items
		SET category_id=$2, name=$3, description=$4, price_cents=$5, weight_grams=$6,
		    image_url=COALESCE($7, image_url), active=$8, sort_order=$9
		WHERE id=$1`,
		id, in.CategoryID, in.Name, in.Description, in.PriceCents, in.WeightGrams, in.ImageURL, in.Active, in.SortOrder)
	if isFKViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteMenuItem(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetMenuItem(ctx context.Context, id string) (MenuItem, error) {
	var m MenuItem
	err := r.DB.QueryRow(ctx, `
		SELECT id, category_id, name, description, price_cents, weight_grams, image_url, active, sort_order, created_at
		FROM menu_items WHERE id=$1`, id).
		Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.PriceCents, &m.WeightGrams, &m.ImageURL, &m.Active, &m.SortOrder, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	return m, err
}

// ListMenuItems returns everything for the admin table; activeOnly narrows it
// to the storefront view.
func (r *Repo) ListMenuItems(ctx context.Context, activeOnly bool) ([]MenuItem, error) {
	q := `
		SELECT id, category_id, name, description, price_cents, weight_grams, image_url, active, sort_order, created_at
		FROM menu_items`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY sort_order ASC, name ASC`

	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.PriceCents, &m.WeightGrams, &m.ImageURL, &m.Active, &m.SortOrder, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
