package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// undefinedColumn is the PostgreSQL SQLSTATE for a missing column.
const undefinedColumn = "42703"

// Capabilities records which optional columns exist in the connected schema.
// It is probed once at startup and passed to Queries and handlers.
type Capabilities struct {
	CustomerType   bool
	EmployeePin    bool
	EmployeeActive bool
}

// AllCapabilities describes a schema created by this module's migrations.
func AllCapabilities() Capabilities {
	return Capabilities{CustomerType: true, EmployeePin: true, EmployeeActive: true}
}

// ColumnSet is the subset of requested columns that exist on a table.
type ColumnSet map[string]bool

func (s ColumnSet) Has(col string) bool { return s[col] }

// Missing returns the columns of want that are absent, in order.
func (s ColumnSet) Missing(want []string) []string {
	var out []string
	for _, c := range want {
		if !s[c] {
			out = append(out, c)
		}
	}
	return out
}

// ProbeColumns reports which of columns exist on table. It first selects all
// of them at once and, only if that fails on an undefined column, probes each
// column individually. Errors other than an undefined column are returned.
func ProbeColumns(ctx context.Context, db DBTX, table string, columns []string) (ColumnSet, error) {
	set := make(ColumnSet, len(columns))

	ok, err := selectable(ctx, db, table, columns)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, c := range columns {
			set[c] = true
		}
		return set, nil
	}

	for _, c := range columns {
		ok, err := selectable(ctx, db, table, []string{c})
		if err != nil {
			return nil, err
		}
		if ok {
			set[c] = true
		}
	}
	return set, nil
}

func selectable(ctx context.Context, db DBTX, table string, columns []string) (bool, error) {
	ident := make([]string, len(columns))
	for i, c := range columns {
		ident[i] = pgx.Identifier{c}.Sanitize()
	}
	sql := fmt.Sprintf("SELECT %s FROM %s LIMIT 0",
		strings.Join(ident, ", "), pgx.Identifier{table}.Sanitize())

	rows, err := db.Query(ctx, sql)
	if err == nil {
		rows.Close()
		err = rows.Err()
	}
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedColumn {
		return false, nil
	}
	return false, fmt.Errorf("probe %s columns: %w", table, err)
}

// ProbeCapabilities inspects the customers and users tables.
func ProbeCapabilities(ctx context.Context, db DBTX) (Capabilities, error) {
	customerCols, err := ProbeColumns(ctx, db, "customers", []string{"type"})
	if err != nil {
		return Capabilities{}, err
	}
	userCols, err := ProbeColumns(ctx, db, "users", []string{"pin", "is_active"})
	if err != nil {
		return Capabilities{}, err
	}
	return Capabilities{
		CustomerType:   customerCols.Has("type"),
		EmployeePin:    userCols.Has("pin"),
		EmployeeActive: userCols.Has("is_active"),
	}, nil
}
