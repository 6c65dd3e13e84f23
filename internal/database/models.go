package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID                  uuid.UUID
	Name                string
	City                pgtype.Text
	Phone               pgtype.Text
	Address             pgtype.Text
	Type                string
	Latitude            pgtype.Float8
	Longitude           pgtype.Float8
	SmartlinkID         pgtype.Text
	SmartlinkWorkshopID pgtype.Text
	AbsenRadius         int32
	Pajak               pgtype.Numeric
	Diskon              pgtype.Numeric
	NotaTransaksi       pgtype.Text
	Settings            []byte
	CreatedAt           time.Time
}

// BranchSummary is the list projection of a branch.
type BranchSummary struct {
	ID    uuid.UUID
	Name  string
	City  pgtype.Text
	Phone pgtype.Text
	Type  string
}

type ProductionStage struct {
	ID         uuid.UUID
	BranchID   uuid.UUID
	StageName  string
	StageOrder int32
}

type Service struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	Name           string
	Category       string
	Price          pgtype.Numeric
	Unit           string
	MinQuantity    pgtype.Numeric
	TurnaroundDays int32
	SmartlinkID    pgtype.Text
	CreatedAt      time.Time
}

// User is an employee row. BranchName is joined from branches.
type User struct {
	ID             uuid.UUID
	Name           string
	Username       string
	Phone          pgtype.Text
	Role           string
	BranchID       pgtype.UUID
	BranchName     pgtype.Text
	Pin            pgtype.Text
	IsActive       bool
	Email          pgtype.Text
	HashedPassword pgtype.Text
	CreatedAt      time.Time
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Address   pgtype.Text
	Type      string
	CreatedAt time.Time
}

// CustomerWithStats carries the order aggregates shown in the customer list.
type CustomerWithStats struct {
	Customer
	TotalOrders int64
	LastOrder   pgtype.Timestamptz
}

// TimelineStep is one element of orders.timeline (JSONB).
type TimelineStep struct {
	Step      string    `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Staff     string    `json:"staff"`
	Service   string    `json:"service"`
	Completed bool      `json:"completed"`
}

type Order struct {
	ID              uuid.UUID
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
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderPayment is one row of the payment ledger. InvoiceID is NULL for
// payments taken at the counter.
type OrderPayment struct {
	ID        uuid.UUID
	OrderID   string
	InvoiceID pgtype.Text
	Amount    int64
	CreatedAt time.Time
}
