package repositories

import (
	"context"
	"errors"
	"fmt"

	"service-dispatch/internal/entities"
	apperrors "service-dispatch/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

const technicianColumns = "tech_id, name, phone, email, specialization, status"

type TechnicianRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Technician, error)
	// FindByPhone matches on digits only, so formatting differences do not matter.
	FindByPhone(ctx context.Context, normalizedPhone string) (*entities.Technician, error)
	FindByName(ctx context.Context, name string) (*entities.Technician, error)
}

type TechnicianRepository struct {
	storage DBPool
}

func NewTechnicianRepository(storage DBPool) TechnicianRepositoryInterface {
	return &TechnicianRepository{storage: storage}
}

func scanTechnician(row pgx.Row) (*entities.Technician, error) {
	var t entities.Technician
	err := row.Scan(&t.ID, &t.Name, &t.Phone, &t.Email, &t.Specialization, &t.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan technician: %w", err)
	}
	return &t, nil
}

func (r *TechnicianRepository) findOne(ctx context.Context, where sq.Sqlizer) (*entities.Technician, error) {
	query, args, err := psql.Select(technicianColumns).From("technicians").Where(where).
		OrderBy("tech_id").Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	return scanTechnician(r.storage.QueryRow(ctx, query, args...))
}

func (r *TechnicianRepository) FindByID(ctx context.Context, id uint64) (*entities.Technician, error) {
	return r.findOne(ctx, sq.Eq{"tech_id": id})
}

// normalizedPhoneSQL mirrors utils.NormalizePhone: digits only, leading US "1" dropped.
const normalizedPhoneSQL = `regexp_replace(regexp_replace(phone, '\D', '', 'g'), '^1(\d{10})$', '\1')`

func (r *TechnicianRepository) FindByPhone(ctx context.Context, normalizedPhone string) (*entities.Technician, error) {
	return r.findOne(ctx, sq.Expr(normalizedPhoneSQL+" = ?", normalizedPhone))
}

func (r *TechnicianRepository) FindByName(ctx context.Context, name string) (*entities.Technician, error) {
	return r.findOne(ctx, sq.Expr("LOWER(name) = LOWER(?)", name))
}
