package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/handler"
	"github.com/kleen-pos/api/internal/payment"
	"github.com/kleen-pos/api/internal/service"
)

const callbackToken = "cb-token"

type mockInvoicer struct {
	requests []payment.InvoiceRequest
	err      error
}

func (m *mockInvoicer) CreateInvoice(_ context.Context, in payment.InvoiceRequest) (*payment.Invoice, error) {
	m.requests = append(m.requests, in)
	if m.err != nil {
		return nil, m.err
	}
	return &payment.Invoice{
		ID:         "inv-1",
		InvoiceURL: "https://checkout.example/inv-1",
		ExpiryDate: "2025-10-16T09:17:00Z",
		Status:     "PENDING",
	}, nil
}

type mockRecorder struct {
	calls []int64
	err   error
}

func (m *mockRecorder) RecordInvoicePayment(_ context.Context, orderID, invoiceID string, amount int64) (database.Order, error) {
	m.calls = append(m.calls, amount)
	if m.err != nil {
		return database.Order{}, m.err
	}
	return database.Order{OrderID: orderID, PaidAmount: amount}, nil
}

// ledgerStore is an in-memory service.OrderStore for running the real
// OrderService behind the payment handler.
type ledgerStore struct {
	orders  map[string]database.Order
	applied map[string]bool
}

func (s *ledgerStore) GetCustomerByPhone(context.Context, string) (database.Customer, error) {
	return database.Customer{}, pgx.ErrNoRows
}

func (s *ledgerStore) GetOrderByOrderIDForUpdate(_ context.Context, orderID string) (database.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *ledgerStore) CreateOrder(context.Context, database.CreateOrderParams) (database.Order, error) {
	return database.Order{}, errors.New("not used")
}

func (s *ledgerStore) UpdateOrderTimeline(context.Context, database.UpdateOrderTimelineParams) (database.Order, error) {
	return database.Order{}, errors.New("not used")
}

func (s *ledgerStore) UpdateOrderPayment(_ context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error) {
	o := s.orders[arg.OrderID]
	o.PaidAmount, o.BalanceDue, o.IsPaid = arg.PaidAmount, arg.BalanceDue, arg.IsPaid
	s.orders[arg.OrderID] = o
	return o, nil
}

func (s *ledgerStore) CreateOrderPayment(_ context.Context, arg database.CreateOrderPaymentParams) (database.OrderPayment, error) {
	key := arg.OrderID + "/" + arg.InvoiceID.String
	if arg.InvoiceID.Valid && s.applied[key] {
		return database.OrderPayment{}, pgx.ErrNoRows
	}
	s.applied[key] = true
	return database.OrderPayment{OrderID: arg.OrderID, InvoiceID: arg.InvoiceID, Amount: arg.Amount}, nil
}

// ledgerTx commits and rolls back nothing; the store applies writes directly.
type ledgerTx struct{ pgx.Tx }

func (ledgerTx) Commit(context.Context) error   { return nil }
func (ledgerTx) Rollback(context.Context) error { return nil }

type ledgerPool struct{}

func (ledgerPool) Begin(context.Context) (pgx.Tx, error) { return ledgerTx{}, nil }

func setupPaymentRouter(t *testing.T, inv *mockInvoicer, rec *mockRecorder) *chi.Mux {
	t.Helper()
	paid := demoOrder(t)
	paid.OrderID = "TZM-PAID"
	paid.IsPaid = true
	paid.PaidAmount = paid.TotalAmount
	paid.BalanceDue = 0

	h := handler.NewPaymentHandler(newMockOrderStore(demoOrder(t), paid), inv, rec, callbackToken, "https://status.kleen.id/status/")
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postCallback(t *testing.T, router http.Handler, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/payment-callback", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-callback-token", token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreatePayment(t *testing.T) {
	inv := &mockInvoicer{}
	router := setupPaymentRouter(t, inv, &mockRecorder{})

	rr := postJSON(t, router, "/create-payment", map[string]interface{}{
		"orderId": "TZM251015091748056",
		"amount":  50000,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["invoiceUrl"] != "https://checkout.example/inv-1" {
		t.Errorf("invoiceUrl = %v", resp["invoiceUrl"])
	}

	got := inv.requests[0]
	if got.ExternalID != "TZM251015091748056" || got.Amount != 50000 {
		t.Errorf("invoice request = %+v", got)
	}
	if got.Customer.GivenNames != "Priza" || got.Customer.MobileNumber != "+628111095503" {
		t.Errorf("customer = %+v", got.Customer)
	}
	if got.SuccessRedirectURL != "https://status.kleen.id/status/TZM251015091748056" {
		t.Errorf("redirect = %q", got.SuccessRedirectURL)
	}
}

func TestCreatePayment_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{"missing order", map[string]interface{}{"amount": 1000}, http.StatusBadRequest},
		{"zero amount", map[string]interface{}{"orderId": "TZM251015091748056", "amount": 0}, http.StatusBadRequest},
		{"unknown order", map[string]interface{}{"orderId": "nope", "amount": 1000}, http.StatusNotFound},
		{"already paid", map[string]interface{}{"orderId": "TZM-PAID", "amount": 1000}, http.StatusConflict},
		{"over balance", map[string]interface{}{"orderId": "TZM251015091748056", "amount": 60000}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &mockInvoicer{}
			router := setupPaymentRouter(t, inv, &mockRecorder{})
			rr := postJSON(t, router, "/create-payment", tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if len(inv.requests) != 0 {
				t.Error("provider should not be called")
			}
		})
	}
}

func TestCreatePayment_ProviderFailure(t *testing.T) {
	router := setupPaymentRouter(t, &mockInvoicer{err: errors.New("gateway timeout")}, &mockRecorder{})

	rr := postJSON(t, router, "/create-payment", map[string]interface{}{"orderId": "TZM251015091748056", "amount": 1000})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "Failed to create payment" || resp["details"] != "gateway timeout" {
		t.Errorf("resp = %v", resp)
	}
}

func TestPaymentCallback(t *testing.T) {
	paidCB := map[string]interface{}{
		"id":          "inv-1",
		"external_id": "TZM251015091748056",
		"status":      "PAID",
		"amount":      50000,
		"paid_amount": 50000,
	}

	tests := []struct {
		name       string
		token      string
		body       map[string]interface{}
		recErr     error
		wantStatus int
		wantResult string
		wantCalls  int
	}{
		{"recorded", callbackToken, paidCB, nil, http.StatusOK, "recorded", 1},
		{"missing token", "", paidCB, nil, http.StatusUnauthorized, "", 0},
		{"wrong token", "guess", paidCB, nil, http.StatusUnauthorized, "", 0},
		{"pending ignored", callbackToken, map[string]interface{}{"external_id": "TZM1", "status": "PENDING"}, nil, http.StatusOK, "ignored", 0},
		{"paid order", callbackToken, paidCB, service.ErrAlreadyPaid, http.StatusOK, "already_paid", 1},
		{"redelivered", callbackToken, paidCB, service.ErrPaymentApplied, http.StatusOK, "already_recorded", 1},
		{"unknown order", callbackToken, paidCB, service.ErrOrderNotFound, http.StatusNotFound, "", 1},
		{"missing external id", callbackToken, map[string]interface{}{"status": "PAID"}, nil, http.StatusBadRequest, "", 0},
		{"missing invoice id", callbackToken, map[string]interface{}{"external_id": "TZM1", "status": "PAID", "paid_amount": 100}, nil, http.StatusBadRequest, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{err: tt.recErr}
			router := setupPaymentRouter(t, &mockInvoicer{}, rec)

			rr := postCallback(t, router, tt.token, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantResult != "" {
				if resp := decodeResponse(t, rr); resp["status"] != tt.wantResult {
					t.Errorf("status = %v, want %s", resp["status"], tt.wantResult)
				}
			}
			if len(rec.calls) != tt.wantCalls {
				t.Errorf("RecordInvoicePayment calls = %d, want %d", len(rec.calls), tt.wantCalls)
			}
		})
	}
}

func TestPaymentCallback_NoConfiguredToken(t *testing.T) {
	h := handler.NewPaymentHandler(newMockOrderStore(), &mockInvoicer{}, &mockRecorder{}, "", "")
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postCallback(t, r, "", map[string]string{"external_id": "TZM1", "status": "PAID"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestPaymentCallback_RedeliveryAppliedOnce(t *testing.T) {
	order := demoOrder(t)
	store := &ledgerStore{
		orders:  map[string]database.Order{order.OrderID: order},
		applied: map[string]bool{},
	}
	svc := service.NewOrderService(ledgerPool{}, func(database.DBTX) service.OrderStore { return store }, nil)
	h := handler.NewPaymentHandler(newMockOrderStore(order), &mockInvoicer{}, svc, callbackToken, "")
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	cb := map[string]interface{}{
		"id":          "inv-7",
		"external_id": order.OrderID,
		"status":      "PAID",
		"paid_amount": 20000,
	}
	want := []string{"recorded", "already_recorded"}
	for i, status := range want {
		rr := postCallback(t, r, callbackToken, cb)
		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d: %s", i+1, rr.Code, rr.Body.String())
		}
		if resp := decodeResponse(t, rr); resp["status"] != status {
			t.Errorf("delivery %d: status = %v, want %s", i+1, resp["status"], status)
		}
	}

	got := store.orders[order.OrderID]
	if got.PaidAmount != 20000 || got.BalanceDue != 30000 || got.IsPaid {
		t.Errorf("after redelivery: paid=%d balance=%d isPaid=%v", got.PaidAmount, got.BalanceDue, got.IsPaid)
	}
}
