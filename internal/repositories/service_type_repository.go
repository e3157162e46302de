package repositories

import (
	"context"
	"fmt"

	"service-dispatch/internal/entities"
)

type ServiceTypeRepositoryInterface interface {
	List(ctx context.Context) ([]entities.ServiceType, error)
}

type ServiceTypeRepository struct {
	storage DBPool
}

func NewServiceTypeRepository(storage DBPool) ServiceTypeRepositoryInterface {
	return &ServiceTypeRepository{storage: storage}
}

func (r *ServiceTypeRepository) List(ctx context.Context) ([]entities.ServiceType, error) {
	query, args, err := psql.Select("service_type_id", "service_name", "base_price::float8", "estimated_duration_minutes").
		From("service_types").OrderBy("service_name").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query service types: %w", err)
	}
	defer rows.Close()

	types := make([]entities.ServiceType, 0)
	for rows.Next() {
		var st entities.ServiceType
		if err := rows.Scan(&st.ID, &st.Name, &st.BasePrice, &st.EstimatedDurationMinutes); err != nil {
			return nil, fmt.Errorf("scan service type: %w", err)
		}
		types = append(types, st)
	}
	return types, rows.Err()
}
