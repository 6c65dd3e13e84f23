package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/validate"
	"github.com/shopspring/decimal"
)

// ServiceStore defines the database methods needed by service handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ServiceStore interface {
	ListServices(ctx context.Context, arg database.ListServicesParams) ([]database.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	CreateService(ctx context.Context, arg database.CreateServiceParams) (database.Service, error)
	UpdateService(ctx context.Context, arg database.UpdateServiceParams) (database.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ServiceHandler handles the laundry service price list.
type ServiceHandler struct {
	store ServiceStore
}

func NewServiceHandler(store ServiceStore) *ServiceHandler {
	return &ServiceHandler{store: store}
}

// RegisterRoutes registers the read endpoints. Mounted at /api/services.
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *ServiceHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type serviceRequest struct {
	BranchID       *string          `json:"branch_id"`
	Name           *string          `json:"name"`
	Category       *string          `json:"category"`
	Price          *decimal.Decimal `json:"price"`
	Unit           *string          `json:"unit"`
	MinQuantity    *decimal.Decimal `json:"min_quantity"`
	TurnaroundDays *int32           `json:"turnaround_days"`
	SmartlinkID    *string          `json:"smartlink_id"`
}

type serviceResponse struct {
	ID             uuid.UUID `json:"id"`
	BranchID       uuid.UUID `json:"branch_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Price          string    `json:"price"`
	Unit           string    `json:"unit"`
	MinQuantity    string    `json:"min_quantity"`
	TurnaroundDays int32     `json:"turnaround_days"`
	SmartlinkID    *string   `json:"smartlink_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func toServiceResponse(s database.Service) serviceResponse {
	return serviceResponse{
		ID:             s.ID,
		BranchID:       s.BranchID,
		Name:           s.Name,
		Category:       s.Category,
		Price:          numericToString(s.Price),
		Unit:           s.Unit,
		MinQuantity:    numericToString(s.MinQuantity),
		TurnaroundDays: s.TurnaroundDays,
		SmartlinkID:    textPtr(s.SmartlinkID),
		CreatedAt:      s.CreatedAt,
	}
}

func (req *serviceRequest) validate(create bool) string {
	if create && (req.Name == nil || strings.TrimSpace(*req.Name) == "") ||
		!create && req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return "Nama wajib diisi"
	}
	if req.Category != nil && !validate.ServiceCategory(*req.Category) {
		return "Kategori harus salah satu dari: kiloan, luas, unit, snapbridge"
	}
	if req.Price != nil && req.Price.IsNegative() {
		return "Harga tidak boleh negatif"
	}
	if req.MinQuantity != nil && !req.MinQuantity.IsPositive() {
		return "min_quantity harus lebih dari 0"
	}
	if req.TurnaroundDays != nil && *req.TurnaroundDays < 1 {
		return "turnaround_days minimal 1"
	}
	return ""
}

// --- Handlers ---

// List returns one branch's services sorted by name. branch_id is required;
// search matches the name and category filters exactly.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	bidStr := r.URL.Query().Get("branch_id")
	if bidStr == "" {
		writeError(w, http.StatusBadRequest, "branch_id is required")
		return
	}
	branchID, err := uuid.Parse(bidStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid branch_id")
		return
	}

	services, err := h.store.ListServices(r.Context(), database.ListServicesParams{
		BranchID: branchID,
		Search:   queryText(r, "search"),
		Category: queryText(r, "category"),
	})
	if err != nil {
		internalError(w, err, "list services")
		return
	}

	resp := make([]serviceResponse, len(services))
	for i, s := range services {
		resp[i] = toServiceResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "service")
	if !ok {
		return
	}

	service, err := h.store.GetService(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Layanan tidak ditemukan")
			return
		}
		internalError(w, err, "get service")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BranchID == nil || *req.BranchID == "" {
		writeError(w, http.StatusBadRequest, "branch_id is required")
		return
	}
	branchID, err := uuid.Parse(*req.BranchID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid branch_id")
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	price := decimal.Zero
	if req.Price != nil {
		price = *req.Price
	}
	priceNum, err := decimalToNumeric(&price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	minQty, err := decimalToNumeric(req.MinQuantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_quantity")
		return
	}

	category := enum.ServiceCategoryUnit
	if req.Category != nil {
		category = *req.Category
	}
	unit := "PCS"
	if req.Unit != nil && strings.TrimSpace(*req.Unit) != "" {
		unit = strings.ToUpper(strings.TrimSpace(*req.Unit))
	}
	days := int32(1)
	if req.TurnaroundDays != nil {
		days = *req.TurnaroundDays
	}

	service, err := h.store.CreateService(r.Context(), database.CreateServiceParams{
		BranchID:       branchID,
		Name:           strings.TrimSpace(*req.Name),
		Category:       category,
		Price:          priceNum,
		Unit:           unit,
		MinQuantity:    minQty,
		TurnaroundDays: days,
		SmartlinkID:    optText(req.SmartlinkID),
	})
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			writeError(w, http.StatusBadRequest, "Cabang tidak ditemukan")
			return
		}
		internalError(w, err, "create service")
		return
	}

	writeJSON(w, http.StatusCreated, toServiceResponse(service))
}

// Update applies the fields present in the body. A service cannot move
// between branches.
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "service")
	if !ok {
		return
	}

	var req serviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	price, err := decimalToNumeric(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	minQty, err := decimalToNumeric(req.MinQuantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_quantity")
		return
	}

	arg := database.UpdateServiceParams{
		ID:          id,
		Name:        optText(req.Name),
		Category:    optText(req.Category),
		Price:       price,
		Unit:        optText(req.Unit),
		MinQuantity: minQty,
	}
	if arg.Unit.Valid {
		arg.Unit.String = strings.ToUpper(arg.Unit.String)
	}
	if req.TurnaroundDays != nil {
		arg.TurnaroundDays = pgtype.Int4{Int32: *req.TurnaroundDays, Valid: true}
	}

	service, err := h.store.UpdateService(r.Context(), arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Layanan tidak ditemukan")
			return
		}
		internalError(w, err, "update service")
		return
	}

	writeJSON(w, http.StatusOK, toServiceResponse(service))
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "service")
	if !ok {
		return
	}

	if _, err := h.store.DeleteService(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Layanan tidak ditemukan")
			return
		}
		internalError(w, err, "delete service")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
