package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/labbook/internal/domain"
)

// TemplateRepository persists connection templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.ConnectionTemplate) error
	List(ctx context.Context) ([]domain.ConnectionTemplate, error)
	// ActiveForBookingType returns the newest active template linked to the
	// booking type.
	ActiveForBookingType(ctx context.Context, bookingTypeID string) (*domain.ConnectionTemplate, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository returns a Postgres-backed implementation.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `id, name, template_type, fields, booking_type_id, is_active, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, template *domain.ConnectionTemplate) error {
	const query = `
        INSERT INTO connection_templates (name, template_type, fields, booking_type_id, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		template.Name,
		template.Type,
		metadataOrEmpty(template.Fields),
		template.BookingTypeID,
		template.Active,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	return mapWriteError(err)
}

func (r *templateRepository) List(ctx context.Context) ([]domain.ConnectionTemplate, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM connection_templates ORDER BY name ASC, id ASC`)
}

func (r *templateRepository) ActiveForBookingType(ctx context.Context, bookingTypeID string) (*domain.ConnectionTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM connection_templates
        WHERE booking_type_id=$1 AND is_active
        ORDER BY created_at DESC LIMIT 1`
	items, err := r.query(ctx, query, bookingTypeID)
	if err != nil {
		return nil, mapReadError(err)
	}
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &items[0], nil
}

func (r *templateRepository) query(ctx context.Context, query string, args ...any) ([]domain.ConnectionTemplate, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ConnectionTemplate
	for rows.Next() {
		var tpl domain.ConnectionTemplate
		if err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Type,
			&tpl.Fields,
			&tpl.BookingTypeID,
			&tpl.Active,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}
