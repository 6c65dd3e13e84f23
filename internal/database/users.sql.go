package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// userColumns selects an employee joined with its branch name. Optional
// columns are replaced by constants when the schema lacks them.
func (q *Queries) userColumns() string {
	pin, active := "u.pin", "u.is_active"
	if !q.caps.EmployeePin {
		pin = "NULL::text"
	}
	if !q.caps.EmployeeActive {
		active = "true"
	}
	return fmt.Sprintf(`u.id, u.name, u.username, u.phone, u.role, u.branch_id, b.name,
	%s, %s, u.email, u.hashed_password, u.created_at`, pin, active)
}

const userFrom = ` FROM users u LEFT JOIN branches b ON b.id = u.branch_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Phone, &u.Role, &u.BranchID, &u.BranchName,
		&u.Pin, &u.IsActive, &u.Email, &u.HashedPassword, &u.CreatedAt,
	)
	return u, err
}

// ListUsers returns employees sorted by name, optionally for one branch.
func (q *Queries) ListUsers(ctx context.Context, branchID pgtype.UUID) ([]User, error) {
	sql := `SELECT ` + q.userColumns() + userFrom + `
WHERE ($1::uuid IS NULL OR u.branch_id = $1)
ORDER BY u.name`

	rows, err := q.db.Query(ctx, sql, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	sql := `SELECT ` + q.userColumns() + userFrom + ` WHERE u.id = $1`
	return scanUser(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	sql := `SELECT ` + q.userColumns() + userFrom + ` WHERE lower(u.email) = lower($1)`
	return scanUser(q.db.QueryRow(ctx, sql, email))
}

type GetUserByBranchAndPinParams struct {
	BranchID uuid.UUID
	Pin      string
}

// GetUserByBranchAndPin finds the active employee of a branch holding PIN.
// Without a pin column, or when the PIN is shared by more than one employee,
// nobody matches.
func (q *Queries) GetUserByBranchAndPin(ctx context.Context, arg GetUserByBranchAndPinParams) (User, error) {
	if !q.caps.EmployeePin {
		return User{}, pgx.ErrNoRows
	}
	sql := `SELECT ` + q.userColumns() + userFrom + ` WHERE u.branch_id = $1 AND u.pin = $2`
	if q.caps.EmployeeActive {
		sql += ` AND u.is_active`
	}
	sql += ` LIMIT 2`

	rows, err := q.db.Query(ctx, sql, arg.BranchID, arg.Pin)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()

	var found []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return User{}, err
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return User{}, err
	}
	if len(found) != 1 {
		return User{}, pgx.ErrNoRows
	}
	return found[0], nil
}

type CreateUserParams struct {
	Name           string
	Username       string
	Phone          pgtype.Text
	Role           string
	BranchID       pgtype.UUID
	Pin            pgtype.Text
	IsActive       bool
	Email          pgtype.Text
	HashedPassword pgtype.Text
}

// CreateUser inserts an employee and re-reads it with the branch join.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	cols := []string{"name", "username", "phone", "role", "branch_id", "email", "hashed_password"}
	args := []any{arg.Name, arg.Username, arg.Phone, arg.Role, arg.BranchID, arg.Email, arg.HashedPassword}
	if q.caps.EmployeePin {
		cols = append(cols, "pin")
		args = append(args, arg.Pin)
	}
	if q.caps.EmployeeActive {
		cols = append(cols, "is_active")
		args = append(args, arg.IsActive)
	}

	var id uuid.UUID
	sql := insertSQL("users", cols) + " RETURNING id"
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return User{}, err
	}
	return q.GetUser(ctx, id)
}

// UpdateUserParams leaves a column untouched when its field is not Valid.
// ClearBranch detaches the employee from any branch.
type UpdateUserParams struct {
	ID          uuid.UUID
	Name        pgtype.Text
	Username    pgtype.Text
	Phone       pgtype.Text
	Role        pgtype.Text
	BranchID    pgtype.UUID
	ClearBranch bool
	Pin         pgtype.Text
	IsActive    pgtype.Bool
	Email       pgtype.Text
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	sets := `name = COALESCE($2, name),
	username = COALESCE($3, username),
	phone = COALESCE($4, phone),
	role = COALESCE($5, role),
	branch_id = CASE WHEN $6::boolean THEN NULL ELSE COALESCE($7, branch_id) END,
	email = COALESCE($8, email)`
	args := []any{arg.ID, arg.Name, arg.Username, arg.Phone, arg.Role, arg.ClearBranch, arg.BranchID, arg.Email}
	if q.caps.EmployeePin {
		args = append(args, arg.Pin)
		sets += fmt.Sprintf(",\n\tpin = COALESCE($%d, pin)", len(args))
	}
	if q.caps.EmployeeActive {
		args = append(args, arg.IsActive)
		sets += fmt.Sprintf(",\n\tis_active = COALESCE($%d, is_active)", len(args))
	}

	var id uuid.UUID
	sql := `UPDATE users SET ` + sets + ` WHERE id = $1 RETURNING id`
	if err := q.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return User{}, err
	}
	return q.GetUser(ctx, id)
}

const deleteUser = `DELETE FROM users WHERE id = $1 RETURNING id`

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteUser, id).Scan(&deleted)
	return deleted, err
}

const countUsers = `SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsers).Scan(&n)
	return n, err
}

func insertSQL(table string, cols []string) string {
	ident := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		ident[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(), strings.Join(ident, ", "), strings.Join(params, ", "))
}
