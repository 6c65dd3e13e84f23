package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/orderstatus"
	"github.com/kleen-pos/api/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	defaultOrderLimit = 50
	maxOrderLimit     = 200
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	AppendTimelineStep(ctx context.Context, orderID string, step database.TimelineStep) (database.Order, error)
	CompleteTimelineStep(ctx context.Context, orderID string, index int, req service.CompleteStepRequest) (database.Order, error)
	RecordPayment(ctx context.Context, orderID string, amount int64) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers the public order endpoints read by the customer
// status page. Mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{orderId}", h.Get)
	r.Get("/{orderId}/status", h.Status)
}

// RegisterStaffRoutes registers intake, listing and the staff mutations.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{orderId}/timeline", h.AppendStep)
	r.Patch("/{orderId}/timeline/{index}", h.CompleteStep)
	r.Post("/{orderId}/payments", h.AddPayment)
}

// --- Request types ---

type timelineStepRequest struct {
	Step      string    `json:"step"`
	Timestamp Timestamp `json:"timestamp"`
	Staff     string    `json:"staff"`
	Service   string    `json:"service"`
	Completed bool      `json:"completed"`
}

func (s timelineStepRequest) toStep() database.TimelineStep {
	return database.TimelineStep{
		Step:      strings.TrimSpace(s.Step),
		Timestamp: s.Timestamp.Time,
		Staff:     s.Staff,
		Service:   s.Service,
		Completed: s.Completed,
	}
}

// createOrderRequest is the Order body minus creation fields. progress is
// always derived from the timeline.
type createOrderRequest struct {
	OrderID         string                `json:"orderId"`
	CustomerName    string                `json:"customerName"`
	CustomerPhone   string                `json:"customerPhone"`
	CustomerAddress string                `json:"customerAddress"`
	TransactionType string                `json:"transactionType"`
	ReceivedAt      Timestamp             `json:"receivedAt"`
	ExpectedAt      Timestamp             `json:"expectedAt"`
	Status          string                `json:"status"`
	TotalAmount     int64                 `json:"totalAmount"`
	PaidAmount      int64                 `json:"paidAmount"`
	BalanceDue      *int64                `json:"balanceDue"`
	IsPaid          *bool                 `json:"isPaid"`
	Timeline        []timelineStepRequest `json:"timeline"`
	Photos          []string              `json:"photos"`
	BusinessName    string                `json:"businessName"`
	BusinessAddress string                `json:"businessAddress"`
	BusinessPhone   string                `json:"businessPhone"`
}

type completeStepRequest struct {
	Staff     string    `json:"staff"`
	Timestamp Timestamp `json:"timestamp"`
}

type addPaymentRequest struct {
	Amount int64 `json:"amount"`
}

// --- Conversions ---

// toPublicOrder converts the stored row to the JSON shape served to the
// status page.
func toPublicOrder(o database.Order) orderstatus.Order {
	timeline := make([]orderstatus.TimelineStep, len(o.Timeline))
	for i, s := range o.Timeline {
		timeline[i] = orderstatus.TimelineStep{
			Step:      s.Step,
			Timestamp: s.Timestamp,
			Staff:     s.Staff,
			Service:   s.Service,
			Completed: s.Completed,
		}
	}
	photos := o.Photos
	if photos == nil {
		photos = []string{}
	}
	return orderstatus.Order{
		OrderID:         o.OrderID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		TransactionType: o.TransactionType,
		ReceivedAt:      o.ReceivedAt,
		ExpectedAt:      o.ExpectedAt,
		Status:          o.Status,
		Progress:        int(o.Progress),
		TotalAmount:     o.TotalAmount,
		PaidAmount:      o.PaidAmount,
		BalanceDue:      o.BalanceDue,
		IsPaid:          o.IsPaid,
		Timeline:        timeline,
		Photos:          photos,
		BusinessName:    o.BusinessName,
		BusinessAddress: o.BusinessAddress,
		BusinessPhone:   o.BusinessPhone,
		CreatedAt:       o.CreatedAt,
	}
}

// writeServiceError maps order service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, service.ErrStepNotFound):
		writeError(w, http.StatusNotFound, "timeline step not found")
	case errors.Is(err, service.ErrDuplicateOrderID):
		writeError(w, http.StatusConflict, "orderId already exists")
	case errors.Is(err, service.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "order is already paid")
	default:
		internalError(w, err, action)
	}
}

// --- Handlers ---

// Get returns the order with the given public orderId.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	order, err := h.store.GetOrderByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logrus.WithField("order_id", orderID).Debug("order not found")
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		internalError(w, err, "get order")
		return
	}
	writeJSON(w, http.StatusOK, toPublicOrder(order))
}

// Status returns the display projection of an order.
func (h *OrderHandler) Status(w http.ResponseWriter, r *http.Request) {
	order, err := h.store.GetOrderByOrderID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		internalError(w, err, "get order status")
		return
	}
	writeJSON(w, http.StatusOK, orderstatus.Project(toPublicOrder(order)))
}

// List returns orders, newest first, optionally for one customer phone.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultOrderLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxOrderLimit {
		limit = maxOrderLimit
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	var phone pgtype.Text
	if s := r.URL.Query().Get("customer_phone"); s != "" {
		phone = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		CustomerPhone: phone,
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		internalError(w, err, "list orders")
		return
	}

	resp := make([]orderstatus.Order, len(orders))
	for i, o := range orders {
		resp[i] = toPublicOrder(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create records a new order at intake.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	timeline := make([]database.TimelineStep, len(req.Timeline))
	for i, s := range req.Timeline {
		timeline[i] = s.toStep()
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		OrderID:         strings.TrimSpace(req.OrderID),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		TransactionType: req.TransactionType,
		ReceivedAt:      req.ReceivedAt.Time,
		ExpectedAt:      req.ExpectedAt.Time,
		Status:          req.Status,
		TotalAmount:     req.TotalAmount,
		PaidAmount:      req.PaidAmount,
		BalanceDue:      req.BalanceDue,
		IsPaid:          req.IsPaid,
		Timeline:        timeline,
		Photos:          req.Photos,
		BusinessName:    strings.TrimSpace(req.BusinessName),
		BusinessAddress: strings.TrimSpace(req.BusinessAddress),
		BusinessPhone:   strings.TrimSpace(req.BusinessPhone),
	})
	if err != nil {
		writeServiceError(w, err, "create order")
		return
	}

	writeJSON(w, http.StatusCreated, toPublicOrder(order))
}

// AppendStep adds a step to the end of the timeline.
func (h *OrderHandler) AppendStep(w http.ResponseWriter, r *http.Request) {
	var req timelineStepRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.svc.AppendTimelineStep(r.Context(), chi.URLParam(r, "orderId"), req.toStep())
	if err != nil {
		writeServiceError(w, err, "append timeline step")
		return
	}
	writeJSON(w, http.StatusOK, toPublicOrder(order))
}

// CompleteStep marks the step at {index} completed. The body is optional.
func (h *OrderHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid step index")
		return
	}

	var req completeStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.CompleteTimelineStep(r.Context(), chi.URLParam(r, "orderId"), index, service.CompleteStepRequest{
		Staff:     strings.TrimSpace(req.Staff),
		Timestamp: req.Timestamp.Time,
	})
	if err != nil {
		writeServiceError(w, err, "complete timeline step")
		return
	}
	writeJSON(w, http.StatusOK, toPublicOrder(order))
}

// AddPayment records a payment taken at the counter.
func (h *OrderHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.svc.RecordPayment(r.Context(), chi.URLParam(r, "orderId"), req.Amount)
	if err != nil {
		writeServiceError(w, err, "record payment")
		return
	}
	writeJSON(w, http.StatusOK, toPublicOrder(order))
}
