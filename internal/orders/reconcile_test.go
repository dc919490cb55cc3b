package orders

import "testing"

func TestStableDrifts(t *testing.T) {
	first := []Drift{
		{TimeSlotID: "a", Committed: 5, Reserved: 3},
		{TimeSlotID: "b", Committed: 7, Reserved: 7}, // gone by second pass
		{TimeSlotID: "c", Committed: 4, Reserved: 2},
	}
	second := []Drift{
		{TimeSlotID: "a", Committed: 5, Reserved: 3}, // stable leak
		{TimeSlotID: "c", Committed: 6, Reserved: 4}, // moved: in-flight checkout
		{TimeSlotID: "d", Committed: 1, Reserved: 0}, // new: not seen twice yet
	}
	got := StableDrifts(first, second)
	if len(got) != 1 || got[0].TimeSlotID != "a" {
		t.Fatalf("StableDrifts = %+v, want only slot a", got)
	}
	if got[0].Leak() != 2 {
		t.Errorf("Leak() = %d, want 2", got[0].Leak())
	}
}

func TestStableDriftsEmpty(t *testing.T) {
	if got := StableDrifts(nil, []Drift{{TimeSlotID: "a", Committed: 1}}); got != nil {
		t.Errorf("nothing should be stable on first sighting, got %+v", got)
	}
	if got := StableDrifts([]Drift{{TimeSlotID: "a", Committed: 1}}, nil); got != nil {
		t.Errorf("resolved drift should not be repaired, got %+v", got)
	}
}
