package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_id, customer_id, customer_name, customer_phone,
	customer_address, transaction_type, received_at, expected_at, status, progress,
	total_amount, paid_amount, balance_due, is_paid, timeline, photos,
	business_name, business_address, business_phone, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var timeline, photos []byte
	err := row.Scan(
		&o.ID, &o.OrderID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerAddress, &o.TransactionType, &o.ReceivedAt, &o.ExpectedAt,
		&o.Status, &o.Progress, &o.TotalAmount, &o.PaidAmount, &o.BalanceDue,
		&o.IsPaid, &timeline, &photos, &o.BusinessName, &o.BusinessAddress,
		&o.BusinessPhone, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(timeline, &o.Timeline); err != nil {
		return Order{}, fmt.Errorf("decode timeline of %s: %w", o.OrderID, err)
	}
	if err := json.Unmarshal(photos, &o.Photos); err != nil {
		return Order{}, fmt.Errorf("decode photos of %s: %w", o.OrderID, err)
	}
	if o.Timeline == nil {
		o.Timeline = []TimelineStep{}
	}
	if o.Photos == nil {
		o.Photos = []string{}
	}
	return o, nil
}

func encodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

const getOrderByOrderID = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

func (q *Queries) GetOrderByOrderID(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByOrderID, orderID))
}

const getOrderByOrderIDForUpdate = getOrderByOrderID + ` FOR NO KEY UPDATE`

// GetOrderByOrderIDForUpdate locks the row until the surrounding
// transaction ends.
func (q *Queries) GetOrderByOrderIDForUpdate(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByOrderIDForUpdate, orderID))
}

type ListOrdersParams struct {
	CustomerPhone pgtype.Text
	Limit         int32
	Offset        int32
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR customer_phone = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.CustomerPhone, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type CreateOrderParams struct {
	OrderID         string
	CustomerID      pgtype.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	TransactionType string
	ReceivedAt      time.Time
	ExpectedAt      time.Time
	Status          string
	Progress        int32
	TotalAmount     int64
	PaidAmount      int64
	BalanceDue      int64
	IsPaid          bool
	Timeline        []TimelineStep
	Photos          []string
	BusinessName    string
	BusinessAddress string
	BusinessPhone   string
}

const createOrder = `INSERT INTO orders (order_id, customer_id, customer_name, customer_phone,
	customer_address, transaction_type, received_at, expected_at, status, progress,
	total_amount, paid_amount, balance_due, is_paid, timeline, photos,
	business_name, business_address, business_phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	timeline, err := encodeList(arg.Timeline)
	if err != nil {
		return Order{}, err
	}
	photos, err := encodeList(arg.Photos)
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderID, arg.CustomerID, arg.CustomerName, arg.CustomerPhone,
		arg.CustomerAddress, arg.TransactionType, arg.ReceivedAt, arg.ExpectedAt,
		arg.Status, arg.Progress, arg.TotalAmount, arg.PaidAmount, arg.BalanceDue,
		arg.IsPaid, timeline, photos, arg.BusinessName, arg.BusinessAddress,
		arg.BusinessPhone,
	))
}

type UpdateOrderTimelineParams struct {
	OrderID  string
	Timeline []TimelineStep
	Progress int32
	Status   string
}

const updateOrderTimeline = `UPDATE orders SET
	timeline = $2, progress = $3, status = $4, updated_at = now()
WHERE order_id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderTimeline(ctx context.Context, arg UpdateOrderTimelineParams) (Order, error) {
	timeline, err := encodeList(arg.Timeline)
	if err != nil {
		return Order{}, err
	}
	return scanOrder(q.db.QueryRow(ctx, updateOrderTimeline,
		arg.OrderID, timeline, arg.Progress, arg.Status,
	))
}

type UpdateOrderPaymentParams struct {
	OrderID    string
	PaidAmount int64
	BalanceDue int64
	IsPaid     bool
}

const updateOrderPayment = `UPDATE orders SET
	paid_amount = $2, balance_due = $3, is_paid = $4, updated_at = now()
WHERE order_id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderPayment(ctx context.Context, arg UpdateOrderPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderPayment,
		arg.OrderID, arg.PaidAmount, arg.BalanceDue, arg.IsPaid,
	))
}

const countOrdersCreatedBetween = `SELECT count(*) FROM orders
WHERE created_at >= $1 AND created_at < $2`

func (q *Queries) CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersCreatedBetween, from, to).Scan(&n)
	return n, err
}

type CreateOrderPaymentParams struct {
	OrderID   string
	InvoiceID pgtype.Text
	Amount    int64
}

const createOrderPayment = `INSERT INTO order_payments (order_id, invoice_id, amount)
VALUES ($1, $2, $3)
ON CONFLICT (order_id, invoice_id) DO NOTHING
RETURNING id, order_id, invoice_id, amount, created_at`

// CreateOrderPayment appends to the payment ledger. It returns pgx.ErrNoRows
// when the invoice was already applied to the order.
func (q *Queries) CreateOrderPayment(ctx context.Context, arg CreateOrderPaymentParams) (OrderPayment, error) {
	var p OrderPayment
	err := q.db.QueryRow(ctx, createOrderPayment, arg.OrderID, arg.InvoiceID, arg.Amount).
		Scan(&p.ID, &p.OrderID, &p.InvoiceID, &p.Amount, &p.CreatedAt)
	return p, err
}
