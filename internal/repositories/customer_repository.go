package repositories

import (
	"context"
	"errors"
	"fmt"

	"service-dispatch/internal/entities"
	apperrors "service-dispatch/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const customerColumns = "customer_id, name, first_name, last_name, phone, email, address, city, state, zip, special_instructions, created_at"

type CustomerRepositoryInterface interface {
	// FindOrCreateByPhone returns the customer owning phone, creating it on first contact.
	// An existing customer keeps its name; a missing email is filled in.
	FindOrCreateByPhone(ctx context.Context, tx pgx.Tx, c entities.Customer) (*entities.Customer, error)
	FindByID(ctx context.Context, id uint64) (*entities.Customer, error)
}

type CustomerRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewCustomerRepository(storage DBPool, logger *zap.Logger) CustomerRepositoryInterface {
	return &CustomerRepository{storage: storage, logger: logger}
}

func scanCustomer(row pgx.Row) (*entities.Customer, error) {
	var c entities.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.FirstName, &c.LastName, &c.Phone, &c.Email,
		&c.Address, &c.City, &c.State, &c.Zip, &c.SpecialInstructions, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) FindOrCreateByPhone(ctx context.Context, tx pgx.Tx, c entities.Customer) (*entities.Customer, error) {
	// the no-op-looking update makes RETURNING yield the existing row on conflict
	query := `
		INSERT INTO customers (name, first_name, last_name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO UPDATE
		SET email = COALESCE(customers.email, EXCLUDED.email),
		    updated_at = NOW()
		RETURNING ` + customerColumns

	customer, err := scanCustomer(getQuerier(r.storage, tx).QueryRow(ctx, query,
		c.Name, c.FirstName, c.LastName, c.Phone, c.Email,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert customer by phone: %w", err)
	}
	return customer, nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uint64) (*entities.Customer, error) {
	query, args, err := psql.Select(customerColumns).From("customers").Where("customer_id = ?", id).ToSql()
	if err != nil {
		return nil, err
	}
	return scanCustomer(r.storage.QueryRow(ctx, query, args...))
}
