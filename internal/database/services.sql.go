package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const serviceColumns = `id, branch_id, name, category, price, unit, min_quantity,
	turnaround_days, smartlink_id, created_at`

func scanService(row pgx.Row) (Service, error) {
	var s Service
	err := row.Scan(
		&s.ID, &s.BranchID, &s.Name, &s.Category, &s.Price, &s.Unit,
		&s.MinQuantity, &s.TurnaroundDays, &s.SmartlinkID, &s.CreatedAt,
	)
	return s, err
}

type ListServicesParams struct {
	BranchID uuid.UUID
	Search   pgtype.Text
	Category pgtype.Text
}

const listServices = `SELECT ` + serviceColumns + ` FROM services
WHERE branch_id = $1
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%')
  AND ($3::text IS NULL OR category = $3)
ORDER BY name`

func (q *Queries) ListServices(ctx context.Context, arg ListServicesParams) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices, arg.BranchID, arg.Search, arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getService = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

func (q *Queries) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getService, id))
}

type CreateServiceParams struct {
	BranchID       uuid.UUID
	Name           string
	Category       string
	Price          pgtype.Numeric
	Unit           string
	MinQuantity    pgtype.Numeric
	TurnaroundDays int32
	SmartlinkID    pgtype.Text
}

const createService = `INSERT INTO services (branch_id, name, category, price, unit,
	min_quantity, turnaround_days, smartlink_id)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::numeric, 1), $7, $8)
RETURNING ` + serviceColumns

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, createService,
		arg.BranchID, arg.Name, arg.Category, arg.Price, arg.Unit,
		arg.MinQuantity, arg.TurnaroundDays, arg.SmartlinkID,
	))
}

// UpdateServiceParams leaves a column untouched when its field is not Valid.
type UpdateServiceParams struct {
	ID             uuid.UUID
	Name           pgtype.Text
	Category       pgtype.Text
	Price          pgtype.Numeric
	Unit           pgtype.Text
	MinQuantity    pgtype.Numeric
	TurnaroundDays pgtype.Int4
}

const updateService = `UPDATE services SET
	name = COALESCE($2, name),
	category = COALESCE($3, category),
	price = COALESCE($4, price),
	unit = COALESCE($5, unit),
	min_quantity = COALESCE($6, min_quantity),
	turnaround_days = COALESCE($7, turnaround_days)
WHERE id = $1
RETURNING ` + serviceColumns

func (q *Queries) UpdateService(ctx context.Context, arg UpdateServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, updateService,
		arg.ID, arg.Name, arg.Category, arg.Price, arg.Unit, arg.MinQuantity, arg.TurnaroundDays,
	))
}

const deleteService = `DELETE FROM services WHERE id = $1 RETURNING id`

func (q *Queries) DeleteService(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteService, id).Scan(&deleted)
	return deleted, err
}
