package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kleen-pos/api/internal/auth"
	"github.com/kleen-pos/api/internal/config"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/router"
	"github.com/kleen-pos/api/internal/ws"
)

const testSecret = "router-secret"

// The requests below are all answered before any query runs.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: []string{"http://localhost:5173"}}
	return router.New(cfg, database.New(nil), nil, ws.NewHub(), nil)
}

func bearer(t *testing.T, role string, branchID uuid.UUID) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, uuid.New(), branchID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + tok
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestAccessControl(t *testing.T) {
	branch := uuid.New()
	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{"branches anonymous", http.MethodGet, "/api/branches", "", http.StatusUnauthorized},
		{"branches kasir", http.MethodGet, "/api/branches", bearer(t, "kasir", branch), http.StatusForbidden},
		{"employees produksi", http.MethodGet, "/api/employees", bearer(t, "produksi", branch), http.StatusForbidden},
		{"customers kurir", http.MethodGet, "/api/customers", bearer(t, "kurir", branch), http.StatusForbidden},
		{"stats kasir", http.MethodGet, "/api/stats", bearer(t, "kasir", branch), http.StatusForbidden},
		{"order list anonymous", http.MethodGet, "/api/orders", "", http.StatusUnauthorized},
		{"order create anonymous", http.MethodPost, "/api/orders", "", http.StatusUnauthorized},
		{"services other branch", http.MethodGet, "/api/services?branch_id=" + uuid.New().String(), bearer(t, "kasir", branch), http.StatusForbidden},
		{"services no branch", http.MethodGet, "/api/services", bearer(t, "kasir", branch), http.StatusBadRequest},
		{"service write kasir", http.MethodPost, "/api/services", bearer(t, "kasir", branch), http.StatusForbidden},
		{"callback without token", http.MethodPost, "/api/payment-callback", "", http.StatusUnauthorized},
	}
	router := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}
