package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockEmployeeStore struct {
	users    map[uuid.UUID]database.User
	branches map[uuid.UUID]string
	created  []database.CreateUserParams
}

func newMockEmployeeStore() *mockEmployeeStore {
	return &mockEmployeeStore{
		users:    make(map[uuid.UUID]database.User),
		branches: make(map[uuid.UUID]string),
	}
}

func (m *mockEmployeeStore) conflict(username string, email pgtype.Text, except uuid.UUID) error {
	for id, u := range m.users {
		if id == except {
			continue
		}
		if u.Username == username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
		if email.Valid && u.Email.Valid && u.Email.String == email.String {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	return nil
}

func (m *mockEmployeeStore) pinConflict(branchID pgtype.UUID, pin pgtype.Text, except uuid.UUID) error {
	if !branchID.Valid || !pin.Valid {
		return nil
	}
	for id, u := range m.users {
		if id != except && u.BranchID == branchID && u.Pin.Valid && u.Pin.String == pin.String {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_branch_pin_key"}
		}
	}
	return nil
}

func (m *mockEmployeeStore) branchName(id pgtype.UUID) (pgtype.Text, error) {
	if !id.Valid {
		return pgtype.Text{}, nil
	}
	name, ok := m.branches[id.Bytes]
	if !ok {
		return pgtype.Text{}, &pgconn.PgError{Code: "23503"}
	}
	return pgtype.Text{String: name, Valid: true}, nil
}

func (m *mockEmployeeStore) ListUsers(_ context.Context, branchID pgtype.UUID) ([]database.User, error) {
	var out []database.User
	for _, u := range m.users {
		if branchID.Valid && u.BranchID != branchID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *mockEmployeeStore) GetUser(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockEmployeeStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	m.created = append(m.created, arg)
	if err := m.conflict(arg.Username, arg.Email, uuid.Nil); err != nil {
		return database.User{}, err
	}
	if err := m.pinConflict(arg.BranchID, arg.Pin, uuid.Nil); err != nil {
		return database.User{}, err
	}
	branchName, err := m.branchName(arg.BranchID)
	if err != nil {
		return database.User{}, err
	}
	u := database.User{
		ID:             uuid.New(),
		Name:           arg.Name,
		Username:       arg.Username,
		Phone:          arg.Phone,
		Role:           arg.Role,
		BranchID:       arg.BranchID,
		BranchName:     branchName,
		Pin:            arg.Pin,
		IsActive:       arg.IsActive,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		CreatedAt:      time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockEmployeeStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	if arg.Username.Valid {
		if err := m.conflict(arg.Username.String, pgtype.Text{}, arg.ID); err != nil {
			return database.User{}, err
		}
		u.Username = arg.Username.String
	}
	if arg.Name.Valid {
		u.Name = arg.Name.String
	}
	if arg.Role.Valid {
		u.Role = arg.Role.String
	}
	if arg.Pin.Valid {
		u.Pin = arg.Pin
	}
	if arg.IsActive.Valid {
		u.IsActive = arg.IsActive.Bool
	}
	switch {
	case arg.ClearBranch:
		u.BranchID = pgtype.UUID{}
		u.BranchName = pgtype.Text{}
	case arg.BranchID.Valid:
		name, err := m.branchName(arg.BranchID)
		if err != nil {
			return database.User{}, err
		}
		u.BranchID, u.BranchName = arg.BranchID, name
	}
	if err := m.pinConflict(u.BranchID, u.Pin, arg.ID); err != nil {
		return database.User{}, err
	}
	m.users[arg.ID] = u
	return u, nil
}

func (m *mockEmployeeStore) DeleteUser(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.users[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.users, id)
	return id, nil
}

func setupEmployeeRouter(store *mockEmployeeStore, caps database.Capabilities) *chi.Mux {
	h := handler.NewEmployeeHandler(store, caps)
	r := chi.NewRouter()
	r.Route("/employees", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateEmployee(t *testing.T) {
	store := newMockEmployeeStore()
	branchID := uuid.New()
	store.branches[branchID] = "Pondok Labu"
	router := setupEmployeeRouter(store, database.AllCapabilities())

	rr := postJSON(t, router, "/employees", map[string]interface{}{
		"name":      "Ratih Pondok Labu",
		"role":      "produksi",
		"branch_id": branchID.String(),
		"pin":       "4321",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["username"] != "ratih_pondok_labu" {
		t.Errorf("username = %v", resp["username"])
	}
	if resp["branch_name"] != "Pondok Labu" || resp["pin"] != "4321" || resp["is_active"] != true {
		t.Errorf("resp = %v", resp)
	}
	if resp["has_login"] != false {
		t.Errorf("has_login = %v", resp["has_login"])
	}
}

func TestCreateEmployee_Defaults(t *testing.T) {
	store := newMockEmployeeStore()
	router := setupEmployeeRouter(store, database.AllCapabilities())

	rr := postJSON(t, router, "/employees", map[string]interface{}{
		"name":     "Kasir Pangpol",
		"email":    "pangpol@kleen.test",
		"password": "rahasia123",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["role"] != "kasir" || resp["has_login"] != true {
		t.Errorf("resp = %v", resp)
	}
	arg := store.created[0]
	if err := bcrypt.CompareHashAndPassword([]byte(arg.HashedPassword.String), []byte("rahasia123")); err != nil {
		t.Errorf("password not hashed with bcrypt: %v", err)
	}
	if _, ok := resp["hashed_password"]; ok {
		t.Error("hash must not be exposed")
	}
}

func TestCreateEmployee_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]interface{}
		wantErr string
	}{
		{"missing name", map[string]interface{}{"role": "kasir"}, "Nama wajib diisi"},
		{"bad role", map[string]interface{}{"name": "Budi", "role": "manager"}, "Role harus salah satu dari: admin, kasir, kurir, produksi"},
		{"bad pin", map[string]interface{}{"name": "Budi", "pin": "12a4"}, "PIN harus 4 digit angka"},
		{"short pin", map[string]interface{}{"name": "Budi", "pin": "123"}, "PIN harus 4 digit angka"},
		{"bad phone", map[string]interface{}{"name": "Budi", "phone": "0811"}, "Nomor telepon harus format 628xxxxxxxxxx"},
		{"short password", map[string]interface{}{"name": "Budi", "password": "abc"}, "Password minimal 8 karakter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupEmployeeRouter(newMockEmployeeStore(), database.AllCapabilities())
			rr := postJSON(t, router, "/employees", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if resp := decodeResponse(t, rr); resp["error"] != tt.wantErr {
				t.Errorf("error = %v, want %s", resp["error"], tt.wantErr)
			}
		})
	}
}

func TestCreateEmployee_Conflicts(t *testing.T) {
	store := newMockEmployeeStore()
	router := setupEmployeeRouter(store, database.AllCapabilities())
	postJSON(t, router, "/employees", map[string]interface{}{"name": "Diani MY", "email": "diani@kleen.test"})

	rr := postJSON(t, router, "/employees", map[string]interface{}{"name": "Diani  MY"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("username: expected 409, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "username sudah dipakai" {
		t.Errorf("error = %v", resp["error"])
	}

	rr = postJSON(t, router, "/employees", map[string]interface{}{"name": "Diani Dua", "email": "diani@kleen.test"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("email: expected 409, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "email sudah dipakai" {
		t.Errorf("error = %v", resp["error"])
	}

	rr = postJSON(t, router, "/employees", map[string]interface{}{"name": "Budi", "branch_id": uuid.New().String()})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown branch: expected 400, got %d", rr.Code)
	}
}

func TestEmployee_DuplicatePinInBranch(t *testing.T) {
	store := newMockEmployeeStore()
	pangpol, bintaro := uuid.New(), uuid.New()
	store.branches[pangpol] = "Pangpol"
	store.branches[bintaro] = "Bintaro"
	router := setupEmployeeRouter(store, database.AllCapabilities())

	rr := postJSON(t, router, "/employees", map[string]interface{}{
		"name": "Admin Pangpol", "role": "admin", "branch_id": pangpol.String(), "pin": "1234",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", rr.Code)
	}

	rr = postJSON(t, router, "/employees", map[string]interface{}{
		"name": "Kasir Pangpol", "branch_id": pangpol.String(), "pin": "1234",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("same branch: expected 409, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "PIN sudah dipakai di cabang ini" {
		t.Errorf("error = %v", resp["error"])
	}

	rr = postJSON(t, router, "/employees", map[string]interface{}{
		"name": "Kasir Bintaro", "branch_id": bintaro.String(), "pin": "1234",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("other branch: expected 201, got %d", rr.Code)
	}
	id := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, router, http.MethodPut, "/employees/"+id, map[string]interface{}{"branch_id": pangpol.String()})
	if rr.Code != http.StatusConflict {
		t.Errorf("move into branch holding the PIN: expected 409, got %d", rr.Code)
	}
}

func TestUpdateEmployee(t *testing.T) {
	store := newMockEmployeeStore()
	branchID := uuid.New()
	store.branches[branchID] = "Bintaro"
	router := setupEmployeeRouter(store, database.AllCapabilities())

	rr := postJSON(t, router, "/employees", map[string]interface{}{"name": "Budi", "branch_id": branchID.String()})
	id := decodeResponse(t, rr)["id"].(string)

	rr = doJSON(t, router, http.MethodPut, "/employees/"+id, map[string]interface{}{"is_active": false, "role": "kurir"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["is_active"] != false || resp["role"] != "kurir" || resp["branch_name"] != "Bintaro" {
		t.Errorf("resp = %v", resp)
	}

	rr = doJSON(t, router, http.MethodPut, "/employees/"+id, map[string]interface{}{"branch_id": ""})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["branch_id"] != nil {
		t.Errorf("branch_id should be cleared, got %v", resp["branch_id"])
	}

	rr = doJSON(t, router, http.MethodPut, "/employees/"+id, map[string]interface{}{"password": "rahasia123"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("password on update: expected 400, got %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPut, "/employees/"+uuid.New().String(), map[string]interface{}{"name": "X"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown: expected 404, got %d", rr.Code)
	}
}

func TestEmployee_WithoutPinColumns(t *testing.T) {
	store := newMockEmployeeStore()
	router := setupEmployeeRouter(store, database.Capabilities{})

	rr := postJSON(t, router, "/employees", map[string]interface{}{"name": "Budi", "pin": "1234"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if _, ok := resp["pin"]; ok {
		t.Error("pin should be hidden without the column")
	}
	if _, ok := resp["is_active"]; ok {
		t.Error("is_active should be hidden without the column")
	}
}

func TestDeleteEmployee(t *testing.T) {
	store := newMockEmployeeStore()
	router := setupEmployeeRouter(store, database.AllCapabilities())
	rr := postJSON(t, router, "/employees", map[string]interface{}{"name": "Budi"})
	id := decodeResponse(t, rr)["id"].(string)

	if rr := doJSON(t, router, http.MethodDelete, "/employees/"+id, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := doJSON(t, router, http.MethodDelete, "/employees/"+id, nil); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rr.Code)
	}
}
