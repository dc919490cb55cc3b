package catalog

import (
	"testing"
	"time"
)

func TestTimeSlotInputValidate(t *testing.T) {
	base := TimeSlotInput{PizzaDayID: "d1", TimeFrom: "17:00", TimeTo: "17:30", MaxPizzas: 10, IsOpen: true}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TimeSlotInput)
	}{
		{"missing day", func(in *TimeSlotInput) { in.PizzaDayID = "" }},
		{"bad time_from", func(in *TimeSlotInput) { in.TimeFrom = "5pm" }},
		{"bad time_to", func(in *TimeSlotInput) { in.TimeTo = "24:00" }},
		{"from after to", func(in *TimeSlotInput) { in.TimeFrom = "18:00" }},
		{"from equals to", func(in *TimeSlotInput) { in.TimeTo = "17:00" }},
		{"zero capacity", func(in *TimeSlotInput) { in.MaxPizzas = 0 }},
		{"negative capacity", func(in *TimeSlotInput) { in.MaxPizzas = -3 }},
	}
	for _, tt := range tests {
		in := base
		tt.mutate(&in)
		if err := in.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestPizzaDayInputValidate(t *testing.T) {
	if err := (PizzaDayInput{}).Validate(); err == nil {
		t.Error("zero date should be rejected")
	}
	in := PizzaDayInput{Date: time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), Active: true}
	if err := in.Validate(); err != nil {
		t.Errorf("valid day rejected: %v", err)
	}
}

func TestMenuItemInputValidate(t *testing.T) {
	w := 420
	base := MenuItemInput{CategoryID: "c1", Name: "Margherita", PriceCents: 890, WeightGrams: &w, Active: true}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
	bad := base
	bad.PriceCents = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero price should be rejected")
	}
	bad = base
	zero := 0
	bad.WeightGrams = &zero
	if err := bad.Validate(); err == nil {
		t.Error("zero weight should be rejected")
	}
}

func TestRemaining(t *testing.T) {
	s := TimeSlot{MaxPizzas: 10, CurrentPizzaCount: 8}
	if got := s.Remaining(); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}
}
