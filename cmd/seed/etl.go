package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/smartlink"
	"github.com/sirupsen/logrus"
)

const serviceBatchSize = 50

var (
	branchColumns = []string{
		"name", "city", "phone", "address", "type", "latitude", "longitude",
		"smartlink_id", "smartlink_workshop_id", "absen_radius", "pajak", "diskon",
		"nota_transaksi", "settings",
	}
	serviceColumns = []string{
		"branch_id", "name", "category", "price", "unit", "min_quantity",
		"turnaround_days", "smartlink_id",
	}
)

// availableColumns keeps the columns of want present in set, reporting the
// rest. required columns must all be present.
func availableColumns(table string, set database.ColumnSet, want, required []string) ([]string, error) {
	for _, c := range required {
		if !set.Has(c) {
			return nil, fmt.Errorf("%s.%s is missing", table, c)
		}
	}
	if missing := set.Missing(want); len(missing) > 0 {
		logrus.WithFields(logrus.Fields{
			"table":   table,
			"columns": strings.Join(missing, ", "),
		}).Warn("Columns missing, values will be skipped")
	}
	var out []string
	for _, c := range want {
		if set.Has(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// insertSQL builds a single-row INSERT for cols.
func insertSQL(table string, cols []string, returning string) string {
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(params, ", "))
	if returning != "" {
		q += " RETURNING " + returning
	}
	return q
}

// importSmartlink replaces branches and Bintaro's services with the export.
func importSmartlink(ctx context.Context, pool *pgxpool.Pool, outlets []smartlink.Outlet, services []smartlink.Service, skipClear bool) error {
	// Probing issues failing SELECTs, so it runs outside the transaction.
	branchSet, err := database.ProbeColumns(ctx, pool, "branches", branchColumns)
	if err != nil {
		return err
	}
	serviceSet, err := database.ProbeColumns(ctx, pool, "services", serviceColumns)
	if err != nil {
		return err
	}
	bCols, err := availableColumns("branches", branchSet, branchColumns, []string{"name"})
	if err != nil {
		return err
	}
	sCols, err := availableColumns("services", serviceSet, serviceColumns, []string{"branch_id", "name"})
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if !skipClear {
		if _, err := tx.Exec(ctx, "DELETE FROM services"); err != nil {
			return fmt.Errorf("clear services: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM branches"); err != nil {
			return fmt.Errorf("clear branches: %w", err)
		}
		logrus.Info("Cleared services and branches")
	}

	bySmartlinkID, err := insertBranches(ctx, tx, outlets, bCols)
	if err != nil {
		return err
	}

	bintaro, err := findBintaro(ctx, tx, bySmartlinkID)
	if err != nil {
		return err
	}

	if err := insertServices(ctx, tx, services, sCols, bintaro); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	breakdown := smartlink.CategoryBreakdown(services)
	categories := make([]string, 0, len(breakdown))
	for c := range breakdown {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		logrus.WithFields(logrus.Fields{"category": c, "services": breakdown[c]}).Info("Category breakdown")
	}
	return nil
}

func insertBranches(ctx context.Context, tx pgx.Tx, outlets []smartlink.Outlet, cols []string) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(outlets))
	for _, o := range outlets {
		row, err := smartlink.BranchRow(o)
		if err != nil {
			return nil, err
		}
		names, values := smartlink.Pick(row, cols)

		var id uuid.UUID
		if err := tx.QueryRow(ctx, insertSQL("branches", names, "id"), values...).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert branch %s: %w", o.Nama, err)
		}
		if o.IDOutlet != "" {
			ids[o.IDOutlet] = id
		}
	}
	logrus.WithField("count", len(outlets)).Info("Inserted branches")
	return ids, nil
}

// findBintaro locates the Bintaro branch by SmartLink id, falling back to
// its name.
func findBintaro(ctx context.Context, tx pgx.Tx, bySmartlinkID map[string]uuid.UUID) (uuid.UUID, error) {
	if id, ok := bySmartlinkID[smartlink.BintaroID]; ok {
		return id, nil
	}
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM branches WHERE name ILIKE '%bintaro%' ORDER BY name LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errors.New("bintaro branch not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find bintaro: %w", err)
	}
	logrus.WithField("branch_id", id).Warn("Bintaro matched by name")
	return id, nil
}

func insertServices(ctx context.Context, tx pgx.Tx, services []smartlink.Service, cols []string, branchID uuid.UUID) error {
	for start := 0; start < len(services); start += serviceBatchSize {
		end := min(start+serviceBatchSize, len(services))

		batch := &pgx.Batch{}
		for _, s := range services[start:end] {
			names, values := smartlink.Pick(smartlink.ServiceRow(s, branchID), cols)
			batch.Queue(insertSQL("services", names, ""), values...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert services %d-%d: %w", start, end-1, err)
		}
		logrus.WithFields(logrus.Fields{"from": start, "to": end - 1}).Info("Inserted service batch")
	}
	logrus.WithField("count", len(services)).Info("Inserted services")
	return nil
}
