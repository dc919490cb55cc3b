package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pizzadni/go-pizza-day.git/internal/catalog"
)

type CatalogHandler struct {
	Repo *catalog.Repo
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Route("/days", func(r chi.Router) {
		r.Get("/", h.listDays)
		r.Post("/", h.createDay)
		r.Get("/upcoming", h.upcomingDays)
		r.Get("/{id}", h.getDay)
		r.Put("/{id}", h.updateDay)
		r.Delete("/{id}", h.deleteDay)
		r.Get("/{id}/slots", h.listSlots)
		r.Post("/{id}/slots", h.createSlot)
	})
	r.Route("/slots", func(r chi.Router) {
		r.Get("/{id}", h.getSlot)
		r.Put("/{id}", h.updateSlot)
		r.Delete("/{id}", h.deleteSlot)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
	r.Route("/menu", func(r chi.Router) {
		r.Get("/", h.listMenu)
		r.Post("/", h.createMenuItem)
		r.Get("/{id}", h.getMenuItem)
		r.Put("/{id}", h.updateMenuItem)
		r.Delete("/{id}", h.deleteMenuItem)
	})
}

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, catalog.ErrDayExists):
		writeError(w, http.StatusConflict, "a pizza day already exists for that date")
	case errors.Is(err, catalog.ErrSlotInUse):
		writeError(w, http.StatusConflict, "time slot still has committed orders")
	case errors.Is(err, catalog.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "category still has menu items")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ---- pizza days ----

type dayReq struct {
	Date   string  `json:"date"` // 2006-01-02
	Active bool    `json:"active"`
	Note   *string `json:"note,omitempty"`
}

func (d dayReq) input() (catalog.PizzaDayInput, error) {
	date, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return catalog.PizzaDayInput{}, errors.New("date must be YYYY-MM-DD")
	}
	return catalog.PizzaDayInput{Date: date, Active: d.Active, Note: d.Note}, nil
}

func (h *CatalogHandler) createDay(w http.ResponseWriter, r *http.Request) {
	var req dayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	in, err := req.input()
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	d, err := h.Repo.CreatePizzaDay(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *CatalogHandler) updateDay(w http.ResponseWriter, r *http.Request) {
	var req dayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	in, err := req.input()
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.UpdatePizzaDay(ctx, chi.URLParam(r, "id"), in); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) deleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.DeletePizzaDay(ctx, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) getDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	d, err := h.Repo.GetPizzaDay(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *CatalogHandler) listDays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	days, err := h.Repo.ListPizzaDays(ctx)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

type upcomingDay struct {
	catalog.PizzaDay
	Slots []catalog.TimeSlot `json:"slots"`
}

// upcomingDays is the storefront landing query: open days with their slots
// and live remaining capacity.
func (h *CatalogHandler) upcomingDays(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	days, err := h.Repo.UpcomingPizzaDays(ctx, time.Now().Truncate(24*time.Hour))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	out := make([]upcomingDay, 0, len(days))
	for _, d := range days {
		slots, err := h.Repo.ListTimeSlots(ctx, d.ID)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		out = append(out, upcomingDay{PizzaDay: d, Slots: slots})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- time slots ----

type slotReq struct {
	TimeFrom  string `json:"time_from"`
	TimeTo    string `json:"time_to"`
	MaxPizzas int    `json:"max_pizzas"`
	IsOpen    bool   `json:"is_open"`
}

func (h *CatalogHandler) createSlot(w http.ResponseWriter, r *http.Request) {
	var req slotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	in := catalog.TimeSlotInput{
		PizzaDayID: chi.URLParam(r, "id"),
		TimeFrom:   req.TimeFrom,
		TimeTo:     req.TimeTo,
		MaxPizzas:  req.MaxPizzas,
		IsOpen:     req.IsOpen,
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	s, err := h.Repo.CreateTimeSlot(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *CatalogHandler) updateSlot(w http.ResponseWriter, r *http.Request) {
	var req slotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	id := chi.URLParam(r, "id")
	existing, err := h.Repo.GetTimeSlot(ctx, id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	in := catalog.TimeSlotInput{
		PizzaDayID: existing.PizzaDayID,
		TimeFrom:   req.TimeFrom,
		TimeTo:     req.TimeTo,
		MaxPizzas:  req.MaxPizzas,
		IsOpen:     req.IsOpen,
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Repo.UpdateTimeSlot(ctx, id, in); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.DeleteTimeSlot(ctx, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) getSlot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	s, err := h.Repo.GetTimeSlot(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CatalogHandler) listSlots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	slots, err := h.Repo.ListTimeSlots(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// ---- categories ----

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	c, err := h.Repo.CreateCategory(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.UpdateCategory(ctx, chi.URLParam(r, "id"), in); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	cats, err := h.Repo.ListCategories(ctx)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// ---- menu items ----

func (h *CatalogHandler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var in catalog.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	m, err := h.Repo.CreateMenuItem(ctx, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *CatalogHandler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in catalog.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.UpdateMenuItem(ctx, chi.URLParam(r, "id"), in); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	if err := h.Repo.DeleteMenuItem(ctx, chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	m, err := h.Repo.GetMenuItem(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *CatalogHandler) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()
	activeOnly := r.URL.Query().Get("active") == "1"
	items, err := h.Repo.ListMenuItems(ctx, activeOnly)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
