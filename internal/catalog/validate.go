package catalog

import (
	"errors"
	"fmt"
	"regexp"
)

var timeOfDay = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (in PizzaDayInput) Validate() error {
	if in.Date.IsZero() {
		return errors.New("date is required")
	}
	if in.Note != nil && len(*in.Note) > 500 {
		return errors.New("note is too long")
	}
	return nil
}

func (in TimeSlotInput) Validate() error {
	if in.PizzaDayID == "" {
		return errors.New("pizza_day_id is required")
	}
	if !timeOfDay.MatchString(in.TimeFrom) {
		return fmt.Errorf("time_from %q is not HH:MM", in.TimeFrom)
	}
	if !timeOfDay.MatchString(in.TimeTo) {
		return fmt.Errorf("time_to %q is not HH:MM", in.TimeTo)
	}
	if in.TimeFrom >= in.TimeTo {
		return errors.New("time_from must be before time_to")
	}
	if in.MaxPizzas <= 0 {
		return errors.New("max_pizzas must be positive")
	}
	return nil
}

func (in CategoryInput) Validate() error {
	if in.Name == "" {
		return errors.New("name is required")
	}
	if len(in.Name) > 100 {
		return errors.New("name is too long")
	}
	if in.SortOrder < 0 {
		return errors.New("sort_order must not be negative")
	}
	return nil
}

func (in MenuItemInput) Validate() error {
	if in.CategoryID == "" {
		return errors.New("category_id is required")
	}
	if in.Name == "" {
		return errors.New("name is required")
	}
	if len(in.Name) > 200 {
		return errors.New("name is too long")
	}
	if in.PriceCents <= 0 {
		return errors.New("price must be positive")
	}
	if in.WeightGrams != nil && *in.WeightGrams <= 0 {
		return errors.New("weight_grams must be positive")
	}
	if in.SortOrder < 0 {
		return errors.New("sort_order must not be negative")
	}
	return nil
}
