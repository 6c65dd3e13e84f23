package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// customerColumns falls back to a constant type when the column is absent.
func (q *Queries) customerColumns(prefix string) string {
	typeCol := prefix + "type"
	if !q.caps.CustomerType {
		typeCol = "'reguler'::text"
	}
	return fmt.Sprintf("%[1]sid, %[1]sname, %[1]sphone, %[1]saddress, %[2]s, %[1]screated_at", prefix, typeCol)
}

func scanCustomer(row pgx.Row, extra ...any) (Customer, error) {
	var c Customer
	dest := append([]any{&c.ID, &c.Name, &c.Phone, &c.Address, &c.Type, &c.CreatedAt}, extra...)
	err := row.Scan(dest...)
	return c, err
}

type ListCustomersParams struct {
	Search pgtype.Text
	Limit  int32
}

// ListCustomers returns customers sorted by name with their order count and
// most recent order time, aggregated in a single query.
func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]CustomerWithStats, error) {
	sql := `SELECT ` + q.customerColumns("c.") + `,
	COALESCE(s.total_orders, 0), s.last_order
FROM customers c
LEFT JOIN (
	SELECT customer_id, count(*) AS total_orders, max(created_at) AS last_order
	FROM orders WHERE customer_id IS NOT NULL GROUP BY customer_id
) s ON s.customer_id = c.id
WHERE ($1::text IS NULL OR c.name ILIKE '%' || $1 || '%' OR c.phone ILIKE '%' || $1 || '%')
ORDER BY c.name
LIMIT $2`

	rows, err := q.db.Query(ctx, sql, arg.Search, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []CustomerWithStats{}
	for rows.Next() {
		var cs CustomerWithStats
		c, err := scanCustomer(rows, &cs.TotalOrders, &cs.LastOrder)
		if err != nil {
			return nil, err
		}
		cs.Customer = c
		items = append(items, cs)
	}
	return items, rows.Err()
}

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	sql := `SELECT ` + q.customerColumns("") + ` FROM customers WHERE id = $1`
	return scanCustomer(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	sql := `SELECT ` + q.customerColumns("") + ` FROM customers WHERE phone = $1`
	return scanCustomer(q.db.QueryRow(ctx, sql, phone))
}

type CreateCustomerParams struct {
	Name    string
	Phone   string
	Address pgtype.Text
	Type    string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	if !q.caps.CustomerType {
		sql := `INSERT INTO customers (name, phone, address) VALUES ($1, $2, $3)
RETURNING ` + q.customerColumns("")
		return scanCustomer(q.db.QueryRow(ctx, sql, arg.Name, arg.Phone, arg.Address))
	}
	sql := `INSERT INTO customers (name, phone, address, type) VALUES ($1, $2, $3, $4)
RETURNING ` + q.customerColumns("")
	return scanCustomer(q.db.QueryRow(ctx, sql, arg.Name, arg.Phone, arg.Address, arg.Type))
}

// UpdateCustomerParams leaves a column untouched when its field is not Valid.
// ClearAddress sets the address to NULL.
type UpdateCustomerParams struct {
	ID           uuid.UUID
	Name         pgtype.Text
	Phone        pgtype.Text
	Address      pgtype.Text
	ClearAddress bool
	Type         pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	typeSet := ""
	args := []any{arg.ID, arg.Name, arg.Phone, arg.Address, arg.ClearAddress}
	if q.caps.CustomerType {
		typeSet = ", type = COALESCE($6, type)"
		args = append(args, arg.Type)
	}
	sql := `UPDATE customers SET
	name = COALESCE($2, name),
	phone = COALESCE($3, phone),
	address = CASE WHEN $5 THEN NULL ELSE COALESCE($4, address) END` + typeSet + `
WHERE id = $1
RETURNING ` + q.customerColumns("")
	return scanCustomer(q.db.QueryRow(ctx, sql, args...))
}

const deleteCustomer = `DELETE FROM customers WHERE id = $1 RETURNING id`

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteCustomer, id).Scan(&deleted)
	return deleted, err
}

const countCustomers = `SELECT count(*) FROM customers`

func (q *Queries) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCustomers).Scan(&n)
	return n, err
}
