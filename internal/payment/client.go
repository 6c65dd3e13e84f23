// Package payment creates hosted invoices with the payment provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Customer identifies the payer on the invoice page.
type Customer struct {
	GivenNames   string `json:"given_names"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

type InvoiceRequest struct {
	ExternalID         string   `json:"external_id"`
	Amount             int64    `json:"amount"`
	Description        string   `json:"description"`
	Customer           Customer `json:"customer"`
	SuccessRedirectURL string   `json:"success_redirect_url,omitempty"`
}

type Invoice struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	ExpiryDate string `json:"expiry_date"`
	Status     string `json:"status"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, secretKey string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateInvoice posts to /v2/invoices authenticated with the secret key as
// the basic-auth user name.
func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	c.logger.WithFields(logrus.Fields{
		"external_id": in.ExternalID,
		"amount":      in.Amount,
	}).Info("Creating invoice")

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send invoice request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read invoice response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"external_id": in.ExternalID,
		"invoice_id":  inv.ID,
		"status":      inv.Status,
	}).Info("Invoice created")
	return &inv, nil
}

// Callback is the invoice notification the provider posts back.
type Callback struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	PaidAmount int64  `json:"paid_amount"`
}

// Settled reports whether the invoice has been paid.
func (cb Callback) Settled() bool {
	return cb.Status == "PAID" || cb.Status == "SETTLED"
}

// PaidValue is the amount to record, preferring paid_amount.
func (cb Callback) PaidValue() int64 {
	if cb.PaidAmount > 0 {
		return cb.PaidAmount
	}
	return cb.Amount
}
