package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/labbook/internal/domain"
)

// ResourceRepository defines persistence access for lab resources.
type ResourceRepository interface {
	Create(ctx context.Context, resource *domain.Resource) error
	Update(ctx context.Context, resource *domain.Resource) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context) ([]domain.Resource, error)
	// ListForType returns the resources mapped to a booking type in
	// assignment order.
	ListForType(ctx context.Context, bookingTypeID string) ([]domain.Resource, error)
}

type resourceRepository struct {
	pool *pgxpool.Pool
}

// NewResourceRepository returns a Postgres-backed implementation.
func NewResourceRepository(pool *pgxpool.Pool) ResourceRepository {
	return &resourceRepository{pool: pool}
}

const resourceColumns = `r.id, r.name, r.description, r.resource_type, r.is_active, r.status,
       r.connection_metadata, r.created_at, r.updated_at`

func (r *resourceRepository) Create(ctx context.Context, resource *domain.Resource) error {
	const query = `
        INSERT INTO resources (name, description, resource_type, is_active, status, connection_metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		resource.Name,
		resource.Description,
		resource.Type,
		resource.Active,
		resource.Status,
		metadataOrEmpty(resource.ConnectionMetadata),
	).Scan(&resource.ID, &resource.CreatedAt, &resource.UpdatedAt)
	return mapWriteError(err)
}

func (r *resourceRepository) Update(ctx context.Context, resource *domain.Resource) error {
	const query = `
        UPDATE resources SET name=$1, description=$2, resource_type=$3, is_active=$4, status=$5,
            connection_metadata=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		resource.Name,
		resource.Description,
		resource.Type,
		resource.Active,
		resource.Status,
		metadataOrEmpty(resource.ConnectionMetadata),
		resource.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *resourceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id=$1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources r WHERE r.id=$1`
	items, err := r.query(ctx, query, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &items[0], nil
}

func (r *resourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	return r.query(ctx, `SELECT `+resourceColumns+` FROM resources r ORDER BY r.name ASC, r.id ASC`)
}

func (r *resourceRepository) ListForType(ctx context.Context, bookingTypeID string) ([]domain.Resource, error) {
	query := `SELECT ` + resourceColumns + `
        FROM booking_type_resources m
        JOIN resources r ON r.id = m.resource_id
        WHERE m.booking_type_id=$1
        ORDER BY m.position ASC`
	items, err := r.query(ctx, query, bookingTypeID)
	return items, mapReadError(err)
}

func (r *resourceRepository) query(ctx context.Context, query string, args ...any) ([]domain.Resource, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(
			&res.ID,
			&res.Name,
			&res.Description,
			&res.Type,
			&res.Active,
			&res.Status,
			&res.ConnectionMetadata,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
