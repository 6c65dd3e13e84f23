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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength   = 8
	userEmailConstraint = "users_email_key"
	userPinConstraint   = "users_branch_pin_key"
)

// EmployeeStore defines the database methods needed by employee handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type EmployeeStore interface {
	ListUsers(ctx context.Context, branchID pgtype.UUID) ([]database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// EmployeeHandler handles employee CRUD endpoints. Employees are rows of the
// users table; pin and is_active are only exposed when the schema has them.
type EmployeeHandler struct {
	store EmployeeStore
	caps  database.Capabilities
}

func NewEmployeeHandler(store EmployeeStore, caps database.Capabilities) *EmployeeHandler {
	return &EmployeeHandler{store: store, caps: caps}
}

// RegisterRoutes registers employee endpoints. Mounted at /api/employees.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

// employeeRequest uses pointers so that an absent field leaves the column
// untouched on update. An empty branch_id detaches the employee.
type employeeRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	BranchID *string `json:"branch_id"`
	Pin      *string `json:"pin"`
	IsActive *bool   `json:"is_active"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type employeeResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Username   string     `json:"username"`
	Phone      *string    `json:"phone"`
	Role       string     `json:"role"`
	BranchID   *uuid.UUID `json:"branch_id"`
	BranchName *string    `json:"branch_name"`
	Pin        *string    `json:"pin,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
	Email      *string    `json:"email"`
	HasLogin   bool       `json:"has_login"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (h *EmployeeHandler) toResponse(u database.User) employeeResponse {
	resp := employeeResponse{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Phone:      textPtr(u.Phone),
		Role:       u.Role,
		BranchID:   uuidPtr(u.BranchID),
		BranchName: textPtr(u.BranchName),
		Email:      textPtr(u.Email),
		HasLogin:   u.HashedPassword.Valid,
		CreatedAt:  u.CreatedAt,
	}
	if h.caps.EmployeePin {
		resp.Pin = textPtr(u.Pin)
	}
	if h.caps.EmployeeActive {
		active := u.IsActive
		resp.IsActive = &active
	}
	return resp
}

func (req *employeeRequest) validate(create bool) string {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" || create && req.Name == nil {
		return "Nama wajib diisi"
	}
	if req.Username != nil && validate.Username(*req.Username) != *req.Username {
		return "Username hanya boleh huruf kecil, angka dan _"
	}
	if req.Phone != nil && *req.Phone != "" && !validate.Phone(*req.Phone) {
		return "Nomor telepon harus format 628xxxxxxxxxx"
	}
	if req.Role != nil && !validate.Role(*req.Role) {
		return "Role harus salah satu dari: " + strings.Join(enum.Roles, ", ")
	}
	if req.Pin != nil && *req.Pin != "" && !validate.PIN(*req.Pin) {
		return "PIN harus 4 digit angka"
	}
	if req.Email != nil && *req.Email != "" && !strings.Contains(*req.Email, "@") {
		return "Format email tidak valid"
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		return "Password minimal 8 karakter"
	}
	return ""
}

func parseBranchRef(s *string) (id pgtype.UUID, clear bool, err error) {
	if s == nil {
		return pgtype.UUID{}, false, nil
	}
	if *s == "" {
		return pgtype.UUID{}, true, nil
	}
	parsed, err := uuid.Parse(*s)
	if err != nil {
		return pgtype.UUID{}, false, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, false, nil
}

// writeUserConflict maps unique violations on users to 409.
func writeUserConflict(w http.ResponseWriter, err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	switch pgErr.ConstraintName {
	case userEmailConstraint:
		writeError(w, http.StatusConflict, "email sudah dipakai")
		return true
	case userPinConstraint:
		writeError(w, http.StatusConflict, "PIN sudah dipakai di cabang ini")
		return true
	}
	writeError(w, http.StatusConflict, "username sudah dipakai")
	return true
}

// --- Handlers ---

// List returns employees sorted by name, optionally for one branch.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	var branchID pgtype.UUID
	if s := r.URL.Query().Get("branch_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid branch_id")
			return
		}
		branchID = pgtype.UUID{Bytes: id, Valid: true}
	}

	users, err := h.store.ListUsers(r.Context(), branchID)
	if err != nil {
		internalError(w, err, "list employees")
		return
	}

	resp := make([]employeeResponse, len(users))
	for i, u := range users {
		resp[i] = h.toResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "employee")
	if !ok {
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Karyawan tidak ditemukan")
			return
		}
		internalError(w, err, "get employee")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(user))
}

// Create adds an employee. The username is derived from the name when absent
// and a password, when given, enables admin console login.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	branchID, _, err := parseBranchRef(req.BranchID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid branch_id")
		return
	}

	name := strings.TrimSpace(*req.Name)
	username := validate.Username(name)
	if req.Username != nil && *req.Username != "" {
		username = *req.Username
	}
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username tidak bisa dibuat dari nama")
		return
	}

	role := enum.UserRoleKasir
	if req.Role != nil {
		role = *req.Role
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var hashed pgtype.Text
	if req.Password != nil {
		b, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(w, err, "hash employee password")
			return
		}
		hashed = pgtype.Text{String: string(b), Valid: true}
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Name:           name,
		Username:       username,
		Phone:          optText(req.Phone),
		Role:           role,
		BranchID:       branchID,
		Pin:            optText(req.Pin),
		IsActive:       active,
		Email:          optText(req.Email),
		HashedPassword: hashed,
	})
	if err != nil {
		if writeUserConflict(w, err) {
			return
		}
		if pgCode(err) == codeForeignKeyViolation {
			writeError(w, http.StatusBadRequest, "Cabang tidak ditemukan")
			return
		}
		internalError(w, err, "create employee")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(user))
}

// Update applies the fields present in the body.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "employee")
	if !ok {
		return
	}

	var req employeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Password != nil {
		writeError(w, http.StatusBadRequest, "password cannot be changed here")
		return
	}

	branchID, clearBranch, err := parseBranchRef(req.BranchID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid branch_id")
		return
	}

	arg := database.UpdateUserParams{
		ID:          id,
		Name:        optText(req.Name),
		Username:    optText(req.Username),
		Phone:       optText(req.Phone),
		Role:        optText(req.Role),
		BranchID:    branchID,
		ClearBranch: clearBranch,
		Pin:         optText(req.Pin),
		Email:       optText(req.Email),
	}
	if req.IsActive != nil {
		arg.IsActive = pgtype.Bool{Bool: *req.IsActive, Valid: true}
	}

	user, err := h.store.UpdateUser(r.Context(), arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Karyawan tidak ditemukan")
			return
		}
		if writeUserConflict(w, err) {
			return
		}
		if pgCode(err) == codeForeignKeyViolation {
			writeError(w, http.StatusBadRequest, "Cabang tidak ditemukan")
			return
		}
		internalError(w, err, "update employee")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(user))
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "employee")
	if !ok {
		return
	}

	if _, err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Karyawan tidak ditemukan")
			return
		}
		internalError(w, err, "delete employee")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
