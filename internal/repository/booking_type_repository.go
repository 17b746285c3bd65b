package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/labbook/internal/domain"
)

// BookingTypeRepository defines persistence access for booking types and
// their resource mapping.
type BookingTypeRepository interface {
	Create(ctx context.Context, bookingType *domain.BookingType) error
	Update(ctx context.Context, bookingType *domain.BookingType) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.BookingType, error)
	List(ctx context.Context, activeOnly bool) ([]domain.BookingType, error)
	AssignResource(ctx context.Context, bookingTypeID, resourceID string) error
	UnassignResource(ctx context.Context, bookingTypeID, resourceID string) error
}

type bookingTypeRepository struct {
	pool *pgxpool.Pool
}

// NewBookingTypeRepository returns a Postgres-backed implementation.
func NewBookingTypeRepository(pool *pgxpool.Pool) BookingTypeRepository {
	return &bookingTypeRepository{pool: pool}
}

const bookingTypeColumns = `id, name, description, max_duration_hours, is_active, created_at, updated_at`

func (r *bookingTypeRepository) Create(ctx context.Context, bookingType *domain.BookingType) error {
	const query = `
        INSERT INTO booking_types (name, description, max_duration_hours, is_active)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		bookingType.Name,
		bookingType.Description,
		bookingType.MaxDurationHours,
		bookingType.Active,
	).Scan(&bookingType.ID, &bookingType.CreatedAt, &bookingType.UpdatedAt)
	return mapWriteError(err)
}

func (r *bookingTypeRepository) Update(ctx context.Context, bookingType *domain.BookingType) error {
	const query = `
        UPDATE booking_types SET name=$1, description=$2, max_duration_hours=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		bookingType.Name,
		bookingType.Description,
		bookingType.MaxDurationHours,
		bookingType.Active,
		bookingType.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookingTypeRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM booking_types WHERE id=$1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookingTypeRepository) GetByID(ctx context.Context, id string) (*domain.BookingType, error) {
	query := `SELECT ` + bookingTypeColumns + ` FROM booking_types WHERE id=$1`
	var bt domain.BookingType
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&bt.ID,
		&bt.Name,
		&bt.Description,
		&bt.MaxDurationHours,
		&bt.Active,
		&bt.CreatedAt,
		&bt.UpdatedAt,
	); err != nil {
		return nil, mapReadError(err)
	}
	return &bt, nil
}

func (r *bookingTypeRepository) List(ctx context.Context, activeOnly bool) ([]domain.BookingType, error) {
	query := `SELECT ` + bookingTypeColumns + ` FROM booking_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BookingType
	for rows.Next() {
		var bt domain.BookingType
		if err := rows.Scan(
			&bt.ID,
			&bt.Name,
			&bt.Description,
			&bt.MaxDurationHours,
			&bt.Active,
			&bt.CreatedAt,
			&bt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, bt)
	}
	return result, rows.Err()
}

func (r *bookingTypeRepository) AssignResource(ctx context.Context, bookingTypeID, resourceID string) error {
	const query = `INSERT INTO booking_type_resources (booking_type_id, resource_id) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, bookingTypeID, resourceID)
	return mapWriteError(err)
}

func (r *bookingTypeRepository) UnassignResource(ctx context.Context, bookingTypeID, resourceID string) error {
	const query = `DELETE FROM booking_type_resources WHERE booking_type_id=$1 AND resource_id=$2`
	cmd, err := r.pool.Exec(ctx, query, bookingTypeID, resourceID)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
