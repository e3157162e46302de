package repositories

import (
	"context"
	"errors"
	"fmt"

	"service-dispatch/internal/entities"
	apperrors "service-dispatch/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	serviceRecordColumns = "record_id, request_id, customer_id, tech_id, service_date, work_performed, parts_used, tech_notes, created_at"
	uniqueViolation      = "23505"
)

type ServiceRecordRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, rec entities.ServiceRecord) (*entities.ServiceRecord, error)
	FindByRequestID(ctx context.Context, requestID uint64) (*entities.ServiceRecord, error)
}

type ServiceRecordRepository struct {
	storage DBPool
}

func NewServiceRecordRepository(storage DBPool) ServiceRecordRepositoryInterface {
	return &ServiceRecordRepository{storage: storage}
}

func scanServiceRecord(row pgx.Row) (*entities.ServiceRecord, error) {
	var rec entities.ServiceRecord
	err := row.Scan(&rec.ID, &rec.RequestID, &rec.CustomerID, &rec.TechID, &rec.ServiceDate,
		&rec.WorkPerformed, &rec.PartsUsed, &rec.TechNotes, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan service record: %w", err)
	}
	return &rec, nil
}

// Create inserts the record dated with the service date given, or today when unset.
func (r *ServiceRecordRepository) Create(ctx context.Context, tx pgx.Tx, rec entities.ServiceRecord) (*entities.ServiceRecord, error) {
	query := `
		INSERT INTO service_records (request_id, customer_id, tech_id, service_date, work_performed, parts_used, tech_notes)
		VALUES ($1, $2, $3, COALESCE($4::date, CURRENT_DATE), $5, $6, $7)
		RETURNING ` + serviceRecordColumns

	created, err := scanServiceRecord(getQuerier(r.storage, tx).QueryRow(ctx, query,
		rec.RequestID, rec.CustomerID, rec.TechID, rec.ServiceDate,
		rec.WorkPerformed, rec.PartsUsed, rec.TechNotes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("service record for request %d already exists: %w", rec.RequestID, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("insert service record: %w", err)
	}
	return created, nil
}

func (r *ServiceRecordRepository) FindByRequestID(ctx context.Context, requestID uint64) (*entities.ServiceRecord, error) {
	query, args, err := psql.Select(serviceRecordColumns).From("service_records").Where("request_id = ?", requestID).ToSql()
	if err != nil {
		return nil, err
	}
	return scanServiceRecord(r.storage.QueryRow(ctx, query, args...))
}
