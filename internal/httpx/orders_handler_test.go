package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
	"github.com/pizzadni/go-pizza-day.git/internal/orders"
)

// fakeStore keeps orders in memory and mirrors the repo's release gating:
// cancellation frees capacity exactly once via the engine it is given.
type fakeStore struct {
	engine   booking.Engine
	menu     map[string]orders.PricedLine // priced by menu item id, qty ignored
	orders   map[string]*orders.Order
	released map[string]bool
	failNext bool
}

func newFakeStore(engine booking.Engine) *fakeStore {
	return &fakeStore{
		engine:   engine,
		menu:     make(map[string]orders.PricedLine),
		orders:   make(map[string]*orders.Order),
		released: make(map[string]bool),
	}
}

func (s *fakeStore) PriceCheckout(ctx context.Context, items []orders.CheckoutItem) (orders.Quote, error) {
	var lines []orders.PricedLine
	for _, it := range items {
		l, ok := s.menu[it.MenuItemID]
		if !ok {
			return orders.Quote{}, fmt.Errorf("%w: %s", orders.ErrUnknownMenuItem, it.MenuItemID)
		}
		l.Quantity = it.Quantity
		lines = append(lines, l)
	}
	return orders.Totalize(lines), nil
}

func (s *fakeStore) CreateOrder(ctx context.Context, in orders.CheckoutInput, q orders.Quote) (orders.Order, error) {
	if s.failNext {
		s.failNext = false
		return orders.Order{}, errors.New("ledger write failed")
	}
	o := orders.Order{
		ID:         fmt.Sprintf("ord-%d", len(s.orders)+1),
		TimeSlotID: in.TimeSlotID,
		PizzaDayID: in.PizzaDayID,
		Status:     orders.StatusNew,
		TotalCents: q.TotalCents,
		PizzaCount: q.PizzaCount,
	}
	s.orders[o.ID] = &o
	return o, nil
}

func (s *fakeStore) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return *o, nil
}

func (s *fakeStore) GetReservation(ctx context.Context, orderID string) (orders.SlotReservation, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return orders.SlotReservation{}, orders.ErrNotFound
	}
	status := orders.ReservationReserved
	if s.released[orderID] {
		status = orders.ReservationReleased
	}
	return orders.SlotReservation{
		OrderID:    orderID,
		TimeSlotID: o.TimeSlotID,
		PizzaCount: o.PizzaCount,
		Status:     status,
	}, nil
}

func (s *fakeStore) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, orderID string, to orders.Status) (orders.Status, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return "", orders.ErrNotFound
	}
	from := o.Status
	if !orders.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", orders.ErrBadTransition, from, to)
	}
	o.Status = to
	return from, nil
}

func (s *fakeStore) CancelOrder(ctx context.Context, orderID string) (orders.CancelResult, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return orders.CancelResult{}, orders.ErrNotFound
	}
	if !orders.CanTransition(o.Status, orders.StatusCancelled) {
		return orders.CancelResult{}, fmt.Errorf("%w: %s -> cancelled", orders.ErrBadTransition, o.Status)
	}
	o.Status = orders.StatusCancelled
	res := orders.CancelResult{TimeSlotID: o.TimeSlotID}
	if !s.released[orderID] {
		s.released[orderID] = true
		n, err := s.engine.Release(ctx, o.TimeSlotID, o.PizzaCount)
		if err != nil {
			return orders.CancelResult{}, err
		}
		res.Released = o.PizzaCount
		res.Committed = n
	}
	return res, nil
}

func (s *fakeStore) DeleteOrder(ctx context.Context, orderID string) (orders.CancelResult, error) {
	res, err := s.CancelOrder(ctx, orderID)
	if errors.Is(err, orders.ErrBadTransition) {
		res, err = orders.CancelResult{}, nil // already cancelled: just remove
	}
	if err != nil {
		return orders.CancelResult{}, err
	}
	delete(s.orders, orderID)
	return res, nil
}

func (s *fakeStore) StatsByDay(ctx context.Context, pizzaDayID string) (orders.Stats, error) {
	st := orders.Stats{ByStatus: map[orders.Status]int{}}
	for _, o := range s.orders {
		st.Total++
		st.ByStatus[o.Status]++
	}
	return st, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore, *booking.MemEngine) {
	t.Helper()
	engine := booking.NewMemEngine()
	engine.AddSlot("slot-1", 10, true)
	engine.AddSlot("slot-closed", 10, false)

	store := newFakeStore(engine)
	store.menu["pizza-m"] = orders.PricedLine{MenuItemID: "pizza-m", Name: "Margherita", PriceCents: 890, CountsCapacity: true}
	store.menu["dip-g"] = orders.PricedLine{MenuItemID: "dip-g", Name: "Garlic dip", PriceCents: 150, CountsCapacity: false}

	h := &OrdersHandler{Store: store, Engine: engine, Service: "test-api"}
	r := NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, engine
}

func checkoutBody(slot string, pizzas int) []byte {
	in := orders.CheckoutInput{
		TimeSlotID:    slot,
		PizzaDayID:    "day-1",
		CustomerName:  "Jana Nováková",
		CustomerPhone: "0903 123 456",
		Items:         []orders.CheckoutItem{{MenuItemID: "pizza-m", Quantity: pizzas}},
	}
	b, _ := json.Marshal(in)
	return b
}

func TestCheckoutReservesCapacity(t *testing.T) {
	srv, _, engine := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 3)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var o orders.Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		t.Fatal(err)
	}
	if o.PizzaCount != 3 || o.TotalCents != 3*890 {
		t.Errorf("pizza_count=%d total=%d", o.PizzaCount, o.TotalCents)
	}
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 3 {
		t.Errorf("committed = %d, want 3", committed)
	}
}

func TestCheckoutCapacityConflict(t *testing.T) {
	srv, _, engine := newTestServer(t)

	// fill to 8 of 10, then ask for 3
	if _, err := engine.Reserve(context.Background(), "slot-1", 8); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 3)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var body insufficientCapacityResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", body.Remaining)
	}
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 8 {
		t.Errorf("rejection must not move the counter: committed = %d", committed)
	}
}

func TestCheckoutClosedSlot(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-closed", 1)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCheckoutCompensatesOnLedgerFailure(t *testing.T) {
	srv, store, engine := newTestServer(t)
	store.failNext = true

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 4)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	// the reservation must have been rolled back
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 0 {
		t.Errorf("committed = %d after failed ledger write, want 0", committed)
	}
}

func TestCancelReleasesExactlyOnce(t *testing.T) {
	srv, _, engine := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 4)))
	if err != nil {
		t.Fatal(err)
	}
	var o orders.Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancelBody := []byte(`{"status":"cancelled"}`)
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/orders/"+o.ID+"/status", bytes.NewReader(cancelBody))
	req.Header.Set("Content-Type", "application/json")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp2.StatusCode)
	}
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 0 {
		t.Errorf("committed = %d after cancel, want 0", committed)
	}

	// second cancel is a conflict and must not free anything again
	req2, _ := http.NewRequest(http.MethodPatch, srv.URL+"/orders/"+o.ID+"/status", bytes.NewReader(cancelBody))
	resp3, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", resp3.StatusCode)
	}
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 0 {
		t.Errorf("committed = %d after double cancel, want 0", committed)
	}
}

func TestStatusTransitionEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 1)))
	if err != nil {
		t.Fatal(err)
	}
	var o orders.Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	patch := func(status string) int {
		body := []byte(fmt.Sprintf(`{"status":%q}`, status))
		req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/orders/"+o.ID+"/status", bytes.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := patch("confirmed"); code != http.StatusOK {
		t.Errorf("new -> confirmed = %d, want 200", code)
	}
	if code := patch("new"); code != http.StatusConflict {
		t.Errorf("confirmed -> new = %d, want 409 (no going back)", code)
	}
	if code := patch("delivered"); code != http.StatusOK {
		t.Errorf("confirmed -> delivered = %d, want 200 (forward jump)", code)
	}
	if code := patch("bogus"); code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", code)
	}
}

func TestCheckoutValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// topping-only cart: no pizzas means nothing to reserve
	in := orders.CheckoutInput{
		TimeSlotID:    "slot-1",
		PizzaDayID:    "day-1",
		CustomerName:  "Jana Nováková",
		CustomerPhone: "0903 123 456",
		Items:         []orders.CheckoutItem{{MenuItemID: "dip-g", Quantity: 2}},
	}
	b, _ := json.Marshal(in)
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("topping-only cart = %d, want 400", resp.StatusCode)
	}

	// unknown menu item
	in.Items = []orders.CheckoutItem{{MenuItemID: "nope", Quantity: 1}}
	b, _ = json.Marshal(in)
	resp, err = http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown item = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteOrderFreesCapacity(t *testing.T) {
	srv, _, engine := newTestServer(t)

	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(checkoutBody("slot-1", 2)))
	if err != nil {
		t.Fatal(err)
	}
	var o orders.Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/orders/"+o.ID, nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", resp2.StatusCode)
	}
	if _, committed, _, _ := engine.Snapshot("slot-1"); committed != 0 {
		t.Errorf("committed = %d after delete, want 0", committed)
	}
}
