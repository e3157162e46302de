package seeders

import (
	"context"
	"fmt"

	"service-dispatch/internal/repositories"

	"go.uber.org/zap"
)

// updateIfExists switches the seeders from insert-or-skip to upsert.
// With false, prices edited by the office are never overwritten.
const updateIfExists = false

// SeedCatalog fills service_types; the booking form and intake read it.
func SeedCatalog(ctx context.Context, db repositories.DBPool, logger *zap.Logger) error {
	logger.Info("seeding service_types", zap.Bool("upsert", updateIfExists))

	query := `INSERT INTO service_types (service_name, base_price, estimated_duration_minutes) VALUES ($1, $2, $3)
			  ON CONFLICT (service_name) DO NOTHING`
	if updateIfExists {
		query = `INSERT INTO service_types (service_name, base_price, estimated_duration_minutes) VALUES ($1, $2, $3)
				 ON CONFLICT (service_name) DO UPDATE SET base_price = EXCLUDED.base_price,
				 estimated_duration_minutes = EXCLUDED.estimated_duration_minutes`
	}

	rows := make([][]interface{}, 0, len(serviceTypesData))
	for _, st := range serviceTypesData {
		rows = append(rows, []interface{}{st.Name, st.BasePrice, st.DurationMinutes})
	}
	return execAll(ctx, db, query, rows)
}

// SeedDemoTechnicians adds a few technicians for local testing of the tech app.
func SeedDemoTechnicians(ctx context.Context, db repositories.DBPool, logger *zap.Logger) error {
	logger.Info("seeding technicians", zap.Bool("upsert", updateIfExists))

	query := `INSERT INTO technicians (name, phone, email, specialization) VALUES ($1, $2, $3, $4)
			  ON CONFLICT (phone) DO NOTHING`
	if updateIfExists {
		query = `INSERT INTO technicians (name, phone, email, specialization) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
				 specialization = EXCLUDED.specialization`
	}

	rows := make([][]interface{}, 0, len(techniciansData))
	for _, t := range techniciansData {
		rows = append(rows, []interface{}{t.Name, t.Phone, t.Email, t.Specialization})
	}
	return execAll(ctx, db, query, rows)
}

// execAll runs query once per row in a single transaction.
func execAll(ctx context.Context, db repositories.DBPool, query string, rows [][]interface{}) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, args := range rows {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %v: %w", args[0], err)
		}
	}
	return tx.Commit(ctx)
}
