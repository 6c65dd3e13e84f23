package handler

import (
	"context"
	"encoding/json"
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

// BranchStore defines the database methods needed by branch handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BranchStore interface {
	ListBranches(ctx context.Context, search pgtype.Text) ([]database.BranchSummary, error)
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	ListProductionStages(ctx context.Context, branchID uuid.UUID) ([]database.ProductionStage, error)
	CreateBranch(ctx context.Context, arg database.CreateBranchParams) (database.Branch, error)
	UpdateBranch(ctx context.Context, arg database.UpdateBranchParams) (database.Branch, error)
	DeleteBranch(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// BranchHandler handles branch CRUD endpoints.
type BranchHandler struct {
	store BranchStore
}

func NewBranchHandler(store BranchStore) *BranchHandler {
	return &BranchHandler{store: store}
}

// RegisterRoutes registers branch endpoints. Mounted at /api/branches.
func (h *BranchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

type branchRequest struct {
	Name          *string          `json:"name"`
	City          *string          `json:"city"`
	Phone         *string          `json:"phone"`
	Address       *string          `json:"address"`
	Type          *string          `json:"type"`
	Latitude      *float64         `json:"latitude"`
	Longitude     *float64         `json:"longitude"`
	AbsenRadius   *int32           `json:"absen_radius"`
	Pajak         *decimal.Decimal `json:"pajak"`
	Diskon        *decimal.Decimal `json:"diskon"`
	NotaTransaksi *string          `json:"nota_transaksi"`
}

type branchSummaryResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	City  *string   `json:"city"`
	Phone *string   `json:"phone"`
	Type  string    `json:"type"`
}

type productionStageResponse struct {
	ID         uuid.UUID `json:"id"`
	BranchID   uuid.UUID `json:"branch_id"`
	StageName  string    `json:"stage_name"`
	StageOrder int32     `json:"stage_order"`
}

type branchResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	Name                string                    `json:"name"`
	City                *string                   `json:"city"`
	Phone               *string                   `json:"phone"`
	Address             *string                   `json:"address"`
	Type                string                    `json:"type"`
	Latitude            *float64                  `json:"latitude"`
	Longitude           *float64                  `json:"longitude"`
	SmartlinkID         *string                   `json:"smartlink_id"`
	SmartlinkWorkshopID *string                   `json:"smartlink_workshop_id"`
	AbsenRadius         int32                     `json:"absen_radius"`
	Pajak               string                    `json:"pajak"`
	Diskon              string                    `json:"diskon"`
	NotaTransaksi       *string                   `json:"nota_transaksi"`
	Settings            json.RawMessage           `json:"settings"`
	CreatedAt           time.Time                 `json:"created_at"`
	ProductionStages    []productionStageResponse `json:"production_stages"`
}

func toBranchResponse(b database.Branch, stages []database.ProductionStage) branchResponse {
	settings := json.RawMessage(b.Settings)
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	resp := branchResponse{
		ID:                  b.ID,
		Name:                b.Name,
		City:                textPtr(b.City),
		Phone:               textPtr(b.Phone),
		Address:             textPtr(b.Address),
		Type:                b.Type,
		Latitude:            float8Ptr(b.Latitude),
		Longitude:           float8Ptr(b.Longitude),
		SmartlinkID:         textPtr(b.SmartlinkID),
		SmartlinkWorkshopID: textPtr(b.SmartlinkWorkshopID),
		AbsenRadius:         b.AbsenRadius,
		Pajak:               numericToString(b.Pajak),
		Diskon:              numericToString(b.Diskon),
		NotaTransaksi:       textPtr(b.NotaTransaksi),
		Settings:            settings,
		CreatedAt:           b.CreatedAt,
		ProductionStages:    make([]productionStageResponse, len(stages)),
	}
	for i, s := range stages {
		resp.ProductionStages[i] = productionStageResponse{
			ID:         s.ID,
			BranchID:   s.BranchID,
			StageName:  s.StageName,
			StageOrder: s.StageOrder,
		}
	}
	return resp
}

// validate checks the fields present in req. create additionally requires a name.
func (req *branchRequest) validate(create bool) string {
	if create && (req.Name == nil || strings.TrimSpace(*req.Name) == "") {
		return "Nama wajib diisi"
	}
	if !create && req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return "Nama wajib diisi"
	}
	if req.Phone != nil && *req.Phone != "" && !validate.Phone(*req.Phone) {
		return "Nomor telepon harus format 628xxxxxxxxxx"
	}
	if req.Type != nil && !validate.BranchType(*req.Type) {
		return "Tipe harus salah satu dari: production, drop_off_only"
	}
	if req.AbsenRadius != nil && *req.AbsenRadius < 0 {
		return "absen_radius tidak boleh negatif"
	}
	return ""
}

// --- Handlers ---

// List returns branch summaries sorted by name, optionally filtered by search.
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListBranches(r.Context(), queryText(r, "search"))
	if err != nil {
		internalError(w, err, "list branches")
		return
	}

	resp := make([]branchSummaryResponse, len(branches))
	for i, b := range branches {
		resp[i] = branchSummaryResponse{
			ID:    b.ID,
			Name:  b.Name,
			City:  textPtr(b.City),
			Phone: textPtr(b.Phone),
			Type:  b.Type,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one branch; production branches include their stage list.
func (h *BranchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "branch")
	if !ok {
		return
	}

	branch, err := h.store.GetBranch(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Branch not found")
			return
		}
		internalError(w, err, "get branch")
		return
	}

	var stages []database.ProductionStage
	if branch.Type == enum.BranchTypeProduction {
		stages, err = h.store.ListProductionStages(r.Context(), id)
		if err != nil {
			internalError(w, err, "list production stages")
			return
		}
	}

	writeJSON(w, http.StatusOK, toBranchResponse(branch, stages))
}

func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req branchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	pajak, err := decimalToNumeric(req.Pajak)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pajak")
		return
	}
	diskon, err := decimalToNumeric(req.Diskon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid diskon")
		return
	}

	branchType := enum.BranchTypeDropOffOnly
	if req.Type != nil {
		branchType = *req.Type
	}
	radius := int32(100)
	if req.AbsenRadius != nil {
		radius = *req.AbsenRadius
	}

	branch, err := h.store.CreateBranch(r.Context(), database.CreateBranchParams{
		Name:          strings.TrimSpace(*req.Name),
		City:          optText(req.City),
		Phone:         optText(req.Phone),
		Address:       optText(req.Address),
		Type:          branchType,
		Latitude:      optFloat8(req.Latitude),
		Longitude:     optFloat8(req.Longitude),
		AbsenRadius:   radius,
		Pajak:         pajak,
		Diskon:        diskon,
		NotaTransaksi: optText(req.NotaTransaksi),
	})
	if err != nil {
		internalError(w, err, "create branch")
		return
	}

	writeJSON(w, http.StatusCreated, toBranchResponse(branch, nil))
}

// Update applies the fields present in the body.
func (h *BranchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "branch")
	if !ok {
		return
	}

	var req branchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	pajak, err := decimalToNumeric(req.Pajak)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pajak")
		return
	}
	diskon, err := decimalToNumeric(req.Diskon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid diskon")
		return
	}

	arg := database.UpdateBranchParams{
		ID:            id,
		Name:          optText(req.Name),
		City:          optText(req.City),
		Phone:         optText(req.Phone),
		Address:       optText(req.Address),
		Type:          optText(req.Type),
		Latitude:      optFloat8(req.Latitude),
		Longitude:     optFloat8(req.Longitude),
		Pajak:         pajak,
		Diskon:        diskon,
		NotaTransaksi: optText(req.NotaTransaksi),
	}
	if req.AbsenRadius != nil {
		arg.AbsenRadius = pgtype.Int4{Int32: *req.AbsenRadius, Valid: true}
	}

	branch, err := h.store.UpdateBranch(r.Context(), arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Branch not found")
			return
		}
		internalError(w, err, "update branch")
		return
	}

	writeJSON(w, http.StatusOK, toBranchResponse(branch, nil))
}

// Delete removes a branch. Branches still referenced by services are kept.
func (h *BranchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "branch")
	if !ok {
		return
	}

	if _, err := h.store.DeleteBranch(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Branch not found")
			return
		}
		if pgCode(err) == codeForeignKeyViolation {
			writeError(w, http.StatusConflict, "Cabang tidak bisa dihapus karena masih memiliki layanan")
			return
		}
		internalError(w, err, "delete branch")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
