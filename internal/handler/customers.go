package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/validate"
)

const (
	defaultCustomerLimit = 100
	maxCustomerLimit     = 500
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.CustomerWithStats, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// CustomerHandler handles customer CRUD endpoints.
type CustomerHandler struct {
	store CustomerStore
	caps  database.Capabilities
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, caps database.Capabilities) *CustomerHandler {
	return &CustomerHandler{store: store, caps: caps}
}

// RegisterRoutes registers customer CRUD endpoints. Mounted at /api/customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

type customerRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Type    *string `json:"type"`
}

type customerResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Address     *string    `json:"address"`
	Type        string     `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	TotalOrders *int64     `json:"total_orders,omitempty"`
	LastOrder   *time.Time `json:"last_order,omitempty"`
}

func (h *CustomerHandler) toResponse(c database.Customer) customerResponse {
	typ := c.Type
	if !h.caps.CustomerType || typ == "" {
		typ = enum.CustomerTypeReguler
	}
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   textPtr(c.Address),
		Type:      typ,
		CreatedAt: c.CreatedAt,
	}
}

// validate trims the phone in place before checking it.
func (req *customerRequest) validate(create bool) string {
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		req.Phone = &phone
	}
	if create && (req.Name == nil || strings.TrimSpace(*req.Name) == "") ||
		!create && req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return "Nama wajib diisi"
	}
	if create && (req.Phone == nil || *req.Phone == "") ||
		!create && req.Phone != nil && *req.Phone == "" {
		return "Nomor telepon wajib diisi"
	}
	if req.Phone != nil && !validate.Phone(*req.Phone) {
		return "Nomor telepon harus format 628xxxxxxxxxx"
	}
	if req.Type != nil && !validate.CustomerType(*req.Type) {
		return "Tipe harus salah satu dari: " + strings.Join(enum.CustomerTypes, ", ")
	}
	return ""
}

// --- Handlers ---

// List returns customers sorted by name with their order count and last
// order time. search matches name or phone, case-insensitively.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultCustomerLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxCustomerLimit {
		limit = maxCustomerLimit
	}

	customers, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		Search: queryText(r, "search"),
		Limit:  int32(limit),
	})
	if err != nil {
		internalError(w, err, "list customers")
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = h.toResponse(c.Customer)
		total := c.TotalOrders
		resp[i].TotalOrders = &total
		if c.LastOrder.Valid {
			last := c.LastOrder.Time
			resp[i].LastOrder = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single customer by ID.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Pelanggan tidak ditemukan")
			return
		}
		internalError(w, err, "get customer")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(customer))
}

// Create adds a customer. Phone numbers are unique.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	typ := enum.CustomerTypeReguler
	if req.Type != nil {
		typ = *req.Type
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		Name:    strings.TrimSpace(*req.Name),
		Phone:   *req.Phone,
		Address: optText(req.Address),
		Type:    typ,
	})
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			writeError(w, http.StatusConflict, "Nomor telepon sudah terdaftar")
			return
		}
		internalError(w, err, "create customer")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(customer))
}

// Update applies the fields present in the body.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	var req customerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var phone pgtype.Text
	if req.Phone != nil {
		phone = pgtype.Text{String: *req.Phone, Valid: true}
	}

	customer, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:           id,
		Name:         optText(req.Name),
		Phone:        phone,
		Address:      optText(req.Address),
		ClearAddress: req.Address != nil && strings.TrimSpace(*req.Address) == "",
		Type:         optText(req.Type),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Pelanggan tidak ditemukan")
			return
		}
		if pgCode(err) == codeUniqueViolation {
			writeError(w, http.StatusConflict, "Nomor telepon sudah terdaftar")
			return
		}
		internalError(w, err, "update customer")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(customer))
}

// Delete removes a customer. Customers with orders cannot be deleted.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	if _, err := h.store.DeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Pelanggan tidak ditemukan")
			return
		}
		if pgCode(err) == codeForeignKeyViolation {
			writeError(w, http.StatusConflict, "Pelanggan tidak bisa dihapus karena memiliki transaksi")
			return
		}
		internalError(w, err, "delete customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
