// Package orderstatus derives what the customer status page shows from a
// laundry order: payment badge, current step, formatted amounts and dates,
// timeline markers and the photo lightbox.
package orderstatus

import "time"

// TimelineStep is one fulfillment stage as served by GET /api/orders/{orderId}.
type TimelineStep struct {
	Step      string    `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Staff     string    `json:"staff"`
	Service   string    `json:"service"`
	Completed bool      `json:"completed"`
}

// Order is the public JSON shape of a laundry order.
type Order struct {
	OrderID         string         `json:"orderId"`
	CustomerName    string         `json:"customerName"`
	CustomerPhone   string         `json:"customerPhone"`
	CustomerAddress string         `json:"customerAddress"`
	TransactionType string         `json:"transactionType"`
	ReceivedAt      time.Time      `json:"receivedAt"`
	ExpectedAt      time.Time      `json:"expectedAt"`
	Status          string         `json:"status"`
	Progress        int            `json:"progress"`
	TotalAmount     int64          `json:"totalAmount"`
	PaidAmount      int64          `json:"paidAmount"`
	BalanceDue      int64          `json:"balanceDue"`
	IsPaid          bool           `json:"isPaid"`
	Timeline        []TimelineStep `json:"timeline"`
	Photos          []string       `json:"photos"`
	BusinessName    string         `json:"businessName"`
	BusinessAddress string         `json:"businessAddress"`
	BusinessPhone   string         `json:"businessPhone"`
	CreatedAt       time.Time      `json:"createdAt"`
}
