package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
	"github.com/kleen-pos/api/internal/validate"
)

const (
	maxOrderIDRetries = 3
	orderIDPrefix     = "TZM"
	orderIDConstraint = "orders_order_id_key"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("orderId already exists")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrPaymentApplied   = errors.New("invoice payment already applied")
	ErrStepNotFound     = errors.New("timeline step not found")
)

// ValidationError is a rejected write. Handlers answer 400 with Message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var jakarta *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*60*60)
	}
	jakarta = loc
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to write orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error)
	GetOrderByOrderIDForUpdate(ctx context.Context, orderID string) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrderTimeline(ctx context.Context, arg database.UpdateOrderTimelineParams) (database.Order, error)
	UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error)
	CreateOrderPayment(ctx context.Context, arg database.CreateOrderPaymentParams) (database.OrderPayment, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// Notifier is told about every committed order change.
type Notifier interface {
	OrderUpdated(order database.Order)
}

// CreateOrderRequest is the intake payload. BalanceDue and IsPaid are derived
// when nil and checked for consistency otherwise. Progress is always derived.
type CreateOrderRequest struct {
	OrderID         string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	TransactionType string
	ReceivedAt      time.Time
	ExpectedAt      time.Time
	Status          string
	TotalAmount     int64
	PaidAmount      int64
	BalanceDue      *int64
	IsPaid          *bool
	Timeline        []database.TimelineStep
	Photos          []string
	BusinessName    string
	BusinessAddress string
	BusinessPhone   string
}

// CompleteStepRequest optionally stamps the completed step.
type CompleteStepRequest struct {
	Staff     string
	Timestamp time.Time
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notifier Notifier
	now      func() time.Time
}

// NewOrderService creates a new OrderService. notifier may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, notifier Notifier) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, notifier: notifier, now: time.Now}
}

// DeriveProgress is round(100 * completed / len), or 100 for an empty timeline.
func DeriveProgress(timeline []database.TimelineStep) int32 {
	if len(timeline) == 0 {
		return 100
	}
	done := 0
	for _, s := range timeline {
		if s.Completed {
			done++
		}
	}
	return int32(math.Round(100 * float64(done) / float64(len(timeline))))
}

// deriveStatus marks a fully completed timeline SELESAI and reopens an order
// that gained pending work. Any other stored status is kept.
func deriveStatus(current string, timeline []database.TimelineStep) string {
	allDone := len(timeline) > 0
	for _, s := range timeline {
		if !s.Completed {
			allDone = false
			break
		}
	}
	switch {
	case allDone:
		return enum.OrderStatusSelesai
	case current == "" || current == enum.OrderStatusSelesai:
		return enum.OrderStatusProses
	}
	return current
}

// checkTimeline rejects unnamed steps and a completed step after an
// incomplete one.
func checkTimeline(timeline []database.TimelineStep) error {
	pending := -1
	for i, s := range timeline {
		if strings.TrimSpace(s.Step) == "" {
			return invalid("timeline", "timeline[%d]: step is required", i)
		}
		if !s.Completed && pending < 0 {
			pending = i
		}
		if s.Completed && pending >= 0 {
			return invalid("timeline", "timeline[%d] is completed but timeline[%d] is not", i, pending)
		}
	}
	return nil
}

func (s *OrderService) validateCreate(req *CreateOrderRequest) error {
	required := []struct{ field, value string }{
		{"customerName", req.CustomerName},
		{"customerPhone", req.CustomerPhone},
		{"customerAddress", req.CustomerAddress},
		{"transactionType", req.TransactionType},
		{"businessName", req.BusinessName},
		{"businessAddress", req.BusinessAddress},
		{"businessPhone", req.BusinessPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "%s is required", r.field)
		}
	}
	if !validate.Phone(req.CustomerPhone) {
		return invalid("customerPhone", "customerPhone must match 628xxxxxxxxx")
	}
	if !validate.TransactionType(req.TransactionType) {
		return invalid("transactionType", "transactionType must be REGULER or EXPRESS")
	}
	if req.ReceivedAt.IsZero() || req.ExpectedAt.IsZero() {
		return invalid("receivedAt", "receivedAt and expectedAt are required")
	}
	if req.ExpectedAt.Before(req.ReceivedAt) {
		return invalid("expectedAt", "expectedAt must not be before receivedAt")
	}
	if req.TotalAmount < 0 {
		return invalid("totalAmount", "totalAmount must be >= 0")
	}
	if req.PaidAmount < 0 || req.PaidAmount > req.TotalAmount {
		return invalid("paidAmount", "paidAmount must be between 0 and totalAmount")
	}
	balance := req.TotalAmount - req.PaidAmount
	if req.BalanceDue != nil && *req.BalanceDue != balance {
		return invalid("balanceDue", "balanceDue must equal totalAmount - paidAmount")
	}
	if req.IsPaid != nil && *req.IsPaid != (balance == 0) {
		return invalid("isPaid", "isPaid must be true exactly when balanceDue is 0")
	}
	for i, p := range req.Photos {
		if strings.TrimSpace(p) == "" {
			return invalid("photos", "photos[%d] is empty", i)
		}
	}
	return checkTimeline(req.Timeline)
}

// CreateOrder validates and stores a new order, linking it to an existing
// customer with the same phone. A generated orderId is retried on collision;
// a caller-supplied one fails with ErrDuplicateOrderID.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if err := s.validateCreate(&req); err != nil {
		return database.Order{}, err
	}

	generated := req.OrderID == ""
	var lastErr error
	for attempt := 0; attempt < maxOrderIDRetries; attempt++ {
		orderID := req.OrderID
		if generated {
			orderID = s.generateOrderID(attempt)
		}
		order, err := s.createOrderTx(ctx, req, orderID)
		if err == nil {
			s.notify(order)
			return order, nil
		}
		if !isOrderIDConflict(err) {
			return database.Order{}, err
		}
		if !generated {
			return database.Order{}, ErrDuplicateOrderID
		}
		lastErr = err
	}
	return database.Order{}, fmt.Errorf("%w: %w", ErrDuplicateOrderID, lastErr)
}

// generateOrderID is TZM + yymmddHHMMSS in Jakarta time + a three digit
// suffix: milliseconds first, random on retries.
func (s *OrderService) generateOrderID(attempt int) string {
	now := s.now().In(jakarta)
	suffix := now.Nanosecond() / int(time.Millisecond)
	if attempt > 0 {
		suffix = rand.IntN(1000)
	}
	return fmt.Sprintf("%s%s%03d", orderIDPrefix, now.Format("060102150405"), suffix)
}

func isOrderIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == orderIDConstraint
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, orderID string) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customerID := pgtype.UUID{}
	customer, err := store.GetCustomerByPhone(ctx, req.CustomerPhone)
	switch {
	case err == nil:
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
	case !errors.Is(err, pgx.ErrNoRows):
		return database.Order{}, fmt.Errorf("get customer by phone: %w", err)
	}

	balance := req.TotalAmount - req.PaidAmount
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderID:         orderID,
		CustomerID:      customerID,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		TransactionType: req.TransactionType,
		ReceivedAt:      req.ReceivedAt,
		ExpectedAt:      req.ExpectedAt,
		Status:          statusOrDerived(req.Status, req.Timeline),
		Progress:        DeriveProgress(req.Timeline),
		TotalAmount:     req.TotalAmount,
		PaidAmount:      req.PaidAmount,
		BalanceDue:      balance,
		IsPaid:          balance == 0,
		Timeline:        req.Timeline,
		Photos:          req.Photos,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		BusinessPhone:   req.BusinessPhone,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

func statusOrDerived(status string, timeline []database.TimelineStep) string {
	if s := strings.TrimSpace(status); s != "" {
		return s
	}
	return deriveStatus("", timeline)
}

// AppendTimelineStep adds step to the end of the order's timeline.
func (s *OrderService) AppendTimelineStep(ctx context.Context, orderID string, step database.TimelineStep) (database.Order, error) {
	if strings.TrimSpace(step.Step) == "" {
		return database.Order{}, invalid("step", "step is required")
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = s.now()
	}

	return s.updateLocked(ctx, orderID, func(store OrderStore, order database.Order) (database.Order, bool, error) {
		timeline := append(append([]database.TimelineStep{}, order.Timeline...), step)
		if err := checkTimeline(timeline); err != nil {
			return database.Order{}, false, err
		}
		updated, err := store.UpdateOrderTimeline(ctx, database.UpdateOrderTimelineParams{
			OrderID:  order.OrderID,
			Timeline: timeline,
			Progress: DeriveProgress(timeline),
			Status:   deriveStatus(order.Status, timeline),
		})
		return updated, true, err
	})
}

// CompleteTimelineStep marks step index as completed. Every earlier step must
// already be completed. Completing a completed step is a no-op.
func (s *OrderService) CompleteTimelineStep(ctx context.Context, orderID string, index int, req CompleteStepRequest) (database.Order, error) {
	return s.updateLocked(ctx, orderID, func(store OrderStore, order database.Order) (database.Order, bool, error) {
		if index < 0 || index >= len(order.Timeline) {
			return database.Order{}, false, ErrStepNotFound
		}
		if order.Timeline[index].Completed {
			return order, false, nil
		}
		for i := 0; i < index; i++ {
			if !order.Timeline[i].Completed {
				return database.Order{}, false, invalid("index", "step %q must be completed first", order.Timeline[i].Step)
			}
		}

		timeline := append([]database.TimelineStep{}, order.Timeline...)
		step := &timeline[index]
		step.Completed = true
		step.Timestamp = s.now()
		if !req.Timestamp.IsZero() {
			step.Timestamp = req.Timestamp
		}
		if req.Staff != "" {
			step.Staff = req.Staff
		}

		updated, err := store.UpdateOrderTimeline(ctx, database.UpdateOrderTimelineParams{
			OrderID:  order.OrderID,
			Timeline: timeline,
			Progress: DeriveProgress(timeline),
			Status:   deriveStatus(order.Status, timeline),
		})
		return updated, true, err
	})
}

// RecordPayment adds a counter payment to paidAmount. The amount must be
// positive and not exceed the remaining balance.
func (s *OrderService) RecordPayment(ctx context.Context, orderID string, amount int64) (database.Order, error) {
	return s.applyPayment(ctx, orderID, pgtype.Text{}, amount)
}

// RecordInvoicePayment applies a settled provider invoice once. A repeated
// invoiceID for the same order returns ErrPaymentApplied and changes nothing.
func (s *OrderService) RecordInvoicePayment(ctx context.Context, orderID, invoiceID string, amount int64) (database.Order, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return database.Order{}, invalid("invoiceId", "invoiceId is required")
	}
	return s.applyPayment(ctx, orderID, pgtype.Text{String: invoiceID, Valid: true}, amount)
}

func (s *OrderService) applyPayment(ctx context.Context, orderID string, invoiceID pgtype.Text, amount int64) (database.Order, error) {
	if amount <= 0 {
		return database.Order{}, invalid("amount", "amount must be > 0")
	}

	return s.updateLocked(ctx, orderID, func(store OrderStore, order database.Order) (database.Order, bool, error) {
		// The ledger row goes first so a replayed invoice is recognised even
		// when its amount no longer fits the balance. Later failures roll it back.
		_, err := store.CreateOrderPayment(ctx, database.CreateOrderPaymentParams{
			OrderID:   order.OrderID,
			InvoiceID: invoiceID,
			Amount:    amount,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, ErrPaymentApplied
		}
		if err != nil {
			return database.Order{}, false, fmt.Errorf("record payment: %w", err)
		}

		if order.IsPaid {
			return database.Order{}, false, ErrAlreadyPaid
		}
		if amount > order.BalanceDue {
			return database.Order{}, false, invalid("amount", "amount exceeds balance due of %d", order.BalanceDue)
		}

		paid := order.PaidAmount + amount
		balance := order.TotalAmount - paid
		updated, err := store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
			OrderID:    order.OrderID,
			PaidAmount: paid,
			BalanceDue: balance,
			IsPaid:     balance == 0,
		})
		return updated, true, err
	})
}

// updateLocked runs fn against the order row locked FOR NO KEY UPDATE and
// commits when fn reports a change.
func (s *OrderService) updateLocked(ctx context.Context, orderID string, fn func(OrderStore, database.Order) (database.Order, bool, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderByOrderIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}

	updated, changed, err := fn(store, order)
	if err != nil {
		return database.Order{}, err
	}
	if !changed {
		return updated, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	s.notify(updated)
	return updated, nil
}

func (s *OrderService) notify(order database.Order) {
	if s.notifier != nil {
		s.notifier.OrderUpdated(order)
	}
}
