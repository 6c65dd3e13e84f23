package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/ws"
	"github.com/sirupsen/logrus"
)

// Broadcaster fans an event out to the watchers of one order.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToOrder(orderID string, event ws.Event)
}

// OrderNotifier pushes every order change to its live status pages.
type OrderNotifier struct {
	hub Broadcaster
}

func NewOrderNotifier(hub Broadcaster) *OrderNotifier {
	return &OrderNotifier{hub: hub}
}

// OrderUpdated broadcasts the public form of o.
func (n *OrderNotifier) OrderUpdated(o database.Order) {
	payload, err := json.Marshal(toPublicOrder(o))
	if err != nil {
		logrus.WithError(err).WithField("order_id", o.OrderID).Error("marshal order event")
		return
	}
	n.hub.BroadcastToOrder(o.OrderID, ws.Event{Type: ws.EventOrderUpdated, Payload: payload})
}

// OrderLookup finds an order by its public orderId.
type OrderLookup interface {
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
}

// LiveHandler upgrades status page connections for known orders.
type LiveHandler struct {
	hub   *ws.Hub
	store OrderLookup
}

func NewLiveHandler(hub *ws.Hub, store OrderLookup) *LiveHandler {
	return &LiveHandler{hub: hub, store: store}
}

func (h *LiveHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/orders/{orderId}", h.Serve)
}

// Serve subscribes the connection to updates for {orderId}.
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if _, err := h.store.GetOrderByOrderID(r.Context(), orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		internalError(w, err, "lookup watched order")
		return
	}
	ws.ServeWS(h.hub, orderID, w, r)
}
