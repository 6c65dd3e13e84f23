package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kleen-pos/api/internal/orderstatus"
	"golang.org/x/sync/errgroup"
)

// StatsStore defines the database methods needed by the dashboard.
// Satisfied by *database.Queries; narrow interface for testability.
type StatsStore interface {
	CountBranches(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountCustomers(ctx context.Context) (int64, error)
	CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// StatsHandler serves the admin dashboard counters.
type StatsHandler struct {
	store StatsStore
	now   func() time.Time
}

// NewStatsHandler creates a StatsHandler; now defaults to time.Now.
func NewStatsHandler(store StatsStore, now func() time.Time) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{store: store, now: now}
}

func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Get)
}

type statsResponse struct {
	TotalBranches  int64 `json:"totalBranches"`
	TotalEmployees int64 `json:"totalEmployees"`
	TotalCustomers int64 `json:"totalCustomers"`
	TodayOrders    int64 `json:"todayOrders"`
}

// jakartaDay returns the bounds of the Asia/Jakarta calendar day holding t.
func jakartaDay(t time.Time) (time.Time, time.Time) {
	local := t.In(orderstatus.Jakarta)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, orderstatus.Jakarta)
	return start, start.AddDate(0, 0, 1)
}

// Get runs the four counts concurrently; any failure answers 500.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	from, to := jakartaDay(h.now())

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		resp.TotalBranches, err = h.store.CountBranches(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.TotalEmployees, err = h.store.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.TotalCustomers, err = h.store.CountCustomers(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.TodayOrders, err = h.store.CountOrdersCreatedBetween(ctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, err, "dashboard stats")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
