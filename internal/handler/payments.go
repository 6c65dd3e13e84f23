package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/payment"
	"github.com/kleen-pos/api/internal/service"
	"github.com/sirupsen/logrus"
)

// callbackTokenHeader carries the shared secret on provider callbacks.
const callbackTokenHeader = "x-callback-token"

// Invoicer creates hosted payment invoices.
// Satisfied by *payment.Client.
type Invoicer interface {
	CreateInvoice(ctx context.Context, in payment.InvoiceRequest) (*payment.Invoice, error)
}

// PaymentRecorder applies a settled invoice to an order at most once.
// Satisfied by *service.OrderService.
type PaymentRecorder interface {
	RecordInvoicePayment(ctx context.Context, orderID, invoiceID string, amount int64) (database.Order, error)
}

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
}

// PaymentHandler creates provider invoices for orders and applies the
// provider's paid notifications.
type PaymentHandler struct {
	store         PaymentStore
	invoicer      Invoicer
	recorder      PaymentRecorder
	callbackToken string
	statusURL     string
}

// NewPaymentHandler creates a new PaymentHandler. Callbacks are rejected
// while callbackToken is empty. When statusURL is set, the payer is sent
// back to statusURL/{orderId} after paying.
func NewPaymentHandler(store PaymentStore, invoicer Invoicer, recorder PaymentRecorder, callbackToken, statusURL string) *PaymentHandler {
	return &PaymentHandler{
		store:         store,
		invoicer:      invoicer,
		recorder:      recorder,
		callbackToken: callbackToken,
		statusURL:     strings.TrimRight(statusURL, "/"),
	}
}

// RegisterRoutes registers payment endpoints. Mounted under /api.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create-payment", h.CreatePayment)
	r.Post("/payment-callback", h.Callback)
}

// --- Request / Response types ---

type createPaymentRequest struct {
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

type createPaymentResponse struct {
	InvoiceID  string `json:"invoiceId"`
	InvoiceURL string `json:"invoiceUrl"`
	ExpiryDate string `json:"expiryDate"`
	Status     string `json:"status"`
}

// --- Handlers ---

// CreatePayment opens an invoice for the outstanding balance of an order.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be > 0")
		return
	}

	order, err := h.store.GetOrderByOrderID(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		internalError(w, err, "get order for payment")
		return
	}
	if order.IsPaid {
		writeError(w, http.StatusConflict, "order is already paid")
		return
	}
	if req.Amount > order.BalanceDue {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("amount exceeds balance due of %d", order.BalanceDue))
		return
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = order.CustomerName
	}
	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		phone = order.CustomerPhone
	}
	if phone != "" && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	in := payment.InvoiceRequest{
		ExternalID:  order.OrderID,
		Amount:      req.Amount,
		Description: "Pembayaran laundry " + order.OrderID,
		Customer: payment.Customer{
			GivenNames:   name,
			MobileNumber: phone,
		},
	}
	if h.statusURL != "" {
		in.SuccessRedirectURL = h.statusURL + "/" + url.PathEscape(order.OrderID)
	}

	invoice, err := h.invoicer.CreateInvoice(r.Context(), in)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.OrderID).Error("create invoice")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to create payment",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, createPaymentResponse{
		InvoiceID:  invoice.ID,
		InvoiceURL: invoice.InvoiceURL,
		ExpiryDate: invoice.ExpiryDate,
		Status:     invoice.Status,
	})
}

// Callback applies a provider invoice notification. Only settled invoices
// change the order; a repeated notification for a paid order is acknowledged.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(callbackTokenHeader)
	if h.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid callback token")
		return
	}

	var cb payment.Callback
	if !decodeBody(w, r, &cb) {
		return
	}
	if cb.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}
	if cb.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"order_id":   cb.ExternalID,
		"invoice_id": cb.ID,
		"status":     cb.Status,
	})

	if !cb.Settled() {
		log.Info("payment callback ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if _, err := h.recorder.RecordInvoicePayment(r.Context(), cb.ExternalID, cb.ID, cb.PaidValue()); err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentApplied):
			log.Info("payment callback redelivered")
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_recorded"})
			return
		case errors.Is(err, service.ErrAlreadyPaid):
			log.Info("payment callback for paid order")
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_paid"})
			return
		}
		writeServiceError(w, err, "record callback payment")
		return
	}

	log.WithField("amount", cb.PaidValue()).Info("payment recorded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
