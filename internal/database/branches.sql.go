package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const branchColumns = `id, name, city, phone, address, type, latitude, longitude,
	smartlink_id, smartlink_workshop_id, absen_radius, pajak, diskon,
	nota_transaksi, settings, created_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	err := row.Scan(
		&b.ID, &b.Name, &b.City, &b.Phone, &b.Address, &b.Type,
		&b.Latitude, &b.Longitude, &b.SmartlinkID, &b.SmartlinkWorkshopID,
		&b.AbsenRadius, &b.Pajak, &b.Diskon, &b.NotaTransaksi, &b.Settings,
		&b.CreatedAt,
	)
	return b, err
}

const listBranches = `SELECT id, name, city, phone, type FROM branches
WHERE ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR city ILIKE '%' || $1 || '%')
ORDER BY name`

func (q *Queries) ListBranches(ctx context.Context, search pgtype.Text) ([]BranchSummary, error) {
	rows, err := q.db.Query(ctx, listBranches, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []BranchSummary{}
	for rows.Next() {
		var b BranchSummary
		if err := rows.Scan(&b.ID, &b.Name, &b.City, &b.Phone, &b.Type); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const getBranch = `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, getBranch, id))
}

const listProductionStages = `SELECT id, branch_id, stage_name, stage_order
FROM production_stage_config WHERE branch_id = $1 ORDER BY stage_order`

func (q *Queries) ListProductionStages(ctx context.Context, branchID uuid.UUID) ([]ProductionStage, error) {
	rows, err := q.db.Query(ctx, listProductionStages, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ProductionStage{}
	for rows.Next() {
		var s ProductionStage
		if err := rows.Scan(&s.ID, &s.BranchID, &s.StageName, &s.StageOrder); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type CreateBranchParams struct {
	Name          string
	City          pgtype.Text
	Phone         pgtype.Text
	Address       pgtype.Text
	Type          string
	Latitude      pgtype.Float8
	Longitude     pgtype.Float8
	AbsenRadius   int32
	Pajak         pgtype.Numeric
	Diskon        pgtype.Numeric
	NotaTransaksi pgtype.Text
}

const createBranch = `INSERT INTO branches (name, city, phone, address, type, latitude, longitude,
	absen_radius, pajak, diskon, nota_transaksi)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::numeric, 0), COALESCE($10::numeric, 0), $11)
RETURNING ` + branchColumns

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, createBranch,
		arg.Name, arg.City, arg.Phone, arg.Address, arg.Type, arg.Latitude,
		arg.Longitude, arg.AbsenRadius, arg.Pajak, arg.Diskon, arg.NotaTransaksi,
	))
}

// UpdateBranchParams leaves a column untouched when its field is not Valid.
type UpdateBranchParams struct {
	ID            uuid.UUID
	Name          pgtype.Text
	City          pgtype.Text
	Phone         pgtype.Text
	Address       pgtype.Text
	Type          pgtype.Text
	Latitude      pgtype.Float8
	Longitude     pgtype.Float8
	AbsenRadius   pgtype.Int4
	Pajak         pgtype.Numeric
	Diskon        pgtype.Numeric
	NotaTransaksi pgtype.Text
}

const updateBranch = `UPDATE branches SET
	name = COALESCE($2, name),
	city = COALESCE($3, city),
	phone = COALESCE($4, phone),
	address = COALESCE($5, address),
	type = COALESCE($6, type),
	latitude = COALESCE($7, latitude),
	longitude = COALESCE($8, longitude),
	absen_radius = COALESCE($9, absen_radius),
	pajak = COALESCE($10, pajak),
	diskon = COALESCE($11, diskon),
	nota_transaksi = COALESCE($12, nota_transaksi)
WHERE id = $1
RETURNING ` + branchColumns

func (q *Queries) UpdateBranch(ctx context.Context, arg UpdateBranchParams) (Branch, error) {
	return scanBranch(q.db.QueryRow(ctx, updateBranch,
		arg.ID, arg.Name, arg.City, arg.Phone, arg.Address, arg.Type, arg.Latitude,
		arg.Longitude, arg.AbsenRadius, arg.Pajak, arg.Diskon, arg.NotaTransaksi,
	))
}

const deleteBranch = `DELETE FROM branches WHERE id = $1 RETURNING id`

func (q *Queries) DeleteBranch(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteBranch, id).Scan(&deleted)
	return deleted, err
}

const countBranches = `SELECT count(*) FROM branches`

func (q *Queries) CountBranches(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countBranches).Scan(&n)
	return n, err
}
