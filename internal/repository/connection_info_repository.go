package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/labbook/internal/domain"
)

// ConnectionInfoRepository persists per-reservation access values.
type ConnectionInfoRepository interface {
	Create(ctx context.Context, info *domain.ConnectionInfo) error
	GetByReservation(ctx context.Context, reservationID string) (*domain.ConnectionInfo, error)
}

type connectionInfoRepository struct {
	pool *pgxpool.Pool
}

// NewConnectionInfoRepository returns a Postgres-backed implementation.
func NewConnectionInfoRepository(pool *pgxpool.Pool) ConnectionInfoRepository {
	return &connectionInfoRepository{pool: pool}
}

func (r *connectionInfoRepository) Create(ctx context.Context, info *domain.ConnectionInfo) error {
	const query = `
        INSERT INTO connection_infos (reservation_id, template_id, field_values)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		info.ReservationID,
		info.TemplateID,
		metadataOrEmpty(info.Values),
	).Scan(&info.ID, &info.CreatedAt)
	return mapWriteError(err)
}

func (r *connectionInfoRepository) GetByReservation(ctx context.Context, reservationID string) (*domain.ConnectionInfo, error) {
	const query = `
        SELECT id, reservation_id, template_id, field_values, created_at
        FROM connection_infos WHERE reservation_id=$1`
	var info domain.ConnectionInfo
	if err := r.pool.QueryRow(ctx, query, reservationID).Scan(
		&info.ID,
		&info.ReservationID,
		&info.TemplateID,
		&info.Values,
		&info.CreatedAt,
	); err != nil {
		return nil, mapReadError(err)
	}
	return &info, nil
}
