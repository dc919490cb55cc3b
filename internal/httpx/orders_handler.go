package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/pizzadni/go-pizza-day.git/internal/booking"
	kafkax "github.com/pizzadni/go-pizza-day.git/internal/kafka"
	"github.com/pizzadni/go-pizza-day.git/internal/orders"
	"github.com/pizzadni/go-pizza-day.git/internal/redisx"
)

// OrderStore is what the handler needs from the order ledger; *orders.Repo
// implements it, tests substitute their own.
type OrderStore interface {
	PriceCheckout(ctx context.Context, items []orders.CheckoutItem) (orders.Quote, error)
	CreateOrder(ctx context.Context, in orders.CheckoutInput, q orders.Quote) (orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (orders.Status, error)
	GetReservation(ctx context.Context, orderID string) (orders.SlotReservation, error)
	CancelOrder(ctx context.Context, orderID string) (orders.CancelResult, error)
	DeleteOrder(ctx context.Context, orderID string) (orders.CancelResult, error)
	StatsByDay(ctx context.Context, pizzaDayID string) (orders.Stats, error)
}

type OrdersHandler struct {
	Store          OrderStore
	Engine         booking.Engine
	ProducerOrders *kafkax.Producer // OrderPlaced, OrderCancelled
	ProducerStatus *kafkax.Producer // OrderStatusChanged
	ProducerSlots  *kafkax.Producer // SlotCapacityChanged
	Redis          *redis.Client    // optional
	Service        string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/stats", h.stats)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Get("/orders/{id}/reservation", h.getReservation)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

type insufficientCapacityResp struct {
	Error     string `json:"error"`
	Remaining int    `json:"remaining"`
}

// createOrder is the checkout path: price the cart, reserve capacity, then
// write the ledger. A ledger failure after a successful reserve triggers the
// compensating release so capacity is never stranded.
func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	quote, err := h.Store.PriceCheckout(ctx, in.Items)
	if err != nil {
		if errors.Is(err, orders.ErrUnknownMenuItem) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not price order")
		return
	}
	if err := orders.CheckQuote(quote); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	committed, err := h.Engine.Reserve(ctx, in.TimeSlotID, quote.PizzaCount)
	if err != nil {
		h.writeReserveError(w, err)
		return
	}

	order, err := h.Store.CreateOrder(ctx, in, quote)
	if err != nil {
		// the reservation is now a dangling resource; give it back before
		// reporting failure
		if n, rerr := h.Engine.Release(ctx, in.TimeSlotID, quote.PizzaCount); rerr != nil {
			log.Printf("CONSISTENCY FAULT: compensating release of %d on slot %s failed: %v (create error: %v)",
				quote.PizzaCount, in.TimeSlotID, rerr, err)
		} else {
			committed = n
		}
		writeError(w, http.StatusInternalServerError, "could not place order")
		return
	}

	h.cacheOrderStatus(ctx, order.ID, order.Status)

	h.publish(h.ProducerOrders, orders.EventOrderPlaced, order.ID, r, orders.OrderPlacedPayload{
		OrderID:    order.ID,
		TimeSlotID: order.TimeSlotID,
		PizzaDayID: order.PizzaDayID,
		PizzaCount: order.PizzaCount,
		TotalCents: order.TotalCents,
	})
	h.publishSlotCapacity(r, order.TimeSlotID, order.PizzaDayID, committed)

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) writeReserveError(w http.ResponseWriter, err error) {
	var ice *booking.InsufficientCapacityError
	switch {
	case errors.As(err, &ice):
		writeJSON(w, http.StatusConflict, insufficientCapacityResp{
			Error:     fmt.Sprintf("only %d pizzas remain in this time slot", ice.Remaining),
			Remaining: ice.Remaining,
		})
	case errors.Is(err, booking.ErrSlotClosed):
		writeError(w, http.StatusConflict, "this time window is no longer accepting orders")
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "time slot not found")
	default:
		writeError(w, http.StatusInternalServerError, "could not reserve capacity")
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getReservation shows the capacity ledger row behind an order, for
// debugging drift reports.
func (h *OrdersHandler) getReservation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sr, err := h.Store.GetReservation(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

// getOrderStatus serves the confirmation page poll; cache first, DB second.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cacheOrderStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f := orders.ListFilter{
		PizzaDayID: r.URL.Query().Get("day"),
		Status:     orders.Status(r.URL.Query().Get("status")),
		Search:     r.URL.Query().Get("q"),
	}
	if f.Status != "" && !orders.ValidStatus(f.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	out, err := h.Store.ListOrders(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !orders.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if req.Status == orders.StatusCancelled {
		h.cancelOrder(ctx, w, r, orderID)
		return
	}

	from, err := h.Store.UpdateStatus(ctx, orderID, req.Status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, orders.ErrBadTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.cacheOrderStatus(ctx, orderID, req.Status)
	h.publish(h.ProducerStatus, orders.EventOrderStatusChanged, orderID, r, orders.OrderStatusChangedPayload{
		OrderID: orderID,
		From:    from,
		To:      req.Status,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

// cancelOrder is the one transition that frees capacity; the repo guarantees
// the release happens exactly once.
func (h *OrdersHandler) cancelOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID string) {
	res, err := h.Store.CancelOrder(ctx, orderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, orders.ErrBadTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, booking.ErrOverRelease):
		log.Printf("CONSISTENCY FAULT: cancel of order %s would over-release slot capacity", orderID)
		writeError(w, http.StatusInternalServerError, "capacity ledger inconsistency")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.cacheOrderStatus(ctx, orderID, orders.StatusCancelled)
	h.publish(h.ProducerOrders, orders.EventOrderCancelled, orderID, r, orders.OrderCancelledPayload{
		OrderID:    orderID,
		TimeSlotID: res.TimeSlotID,
		Released:   res.Released,
	})
	if res.Released > 0 {
		h.publishSlotCapacity(r, res.TimeSlotID, "", res.Committed)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": orders.StatusCancelled, "released": res.Released})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Store.DeleteOrder(ctx, orderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, booking.ErrOverRelease):
		log.Printf("CONSISTENCY FAULT: delete of order %s would over-release slot capacity", orderID)
		writeError(w, http.StatusInternalServerError, "capacity ledger inconsistency")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	}
	if res.Released > 0 {
		h.publishSlotCapacity(r, res.TimeSlotID, "", res.Committed)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Store.StatsByDay(ctx, r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *OrdersHandler) cacheOrderStatus(ctx context.Context, orderID string, s orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, s), redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, correlationID string, r *http.Request, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishSlotCapacity(r *http.Request, slotID, dayID string, committed int) {
	if h.ProducerSlots == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventSlotCapacityChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: slotID,
		Payload: kafkax.MustMarshal(orders.SlotCapacityChangedPayload{
			TimeSlotID: slotID,
			PizzaDayID: dayID,
			Committed:  committed,
		}),
	}
	h.ProducerSlots.Publish(orders.PartitionKey(slotID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventSlotCapacityChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
