package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/labbook/internal/domain"
)

// ReservationFilter captures reservation search parameters. OverlapFrom and
// OverlapTo select reservations whose [start, end) intersects the window.
type ReservationFilter struct {
	UserID        *string
	BookingTypeID *string
	ResourceID    *string
	LockKey       *string
	ExcludeID     *string
	Statuses      []domain.ReservationStatus
	OverlapFrom   *time.Time
	OverlapTo     *time.Time
	StartFrom     *time.Time
	StartTo       *time.Time
	// Limit of zero returns every match.
	Limit  int
	Offset int
}

// ReservationRepository encapsulates reservation persistence.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error)
	// TransitionStatus sets status only when the current status is one of
	// from and reports whether a row changed.
	TransitionStatus(ctx context.Context, id string, status domain.ReservationStatus, from []domain.ReservationStatus) (bool, error)
	// SetStatus writes status unconditionally. Reserved for admin overrides.
	SetStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	LastCreatedAt(ctx context.Context, userID string, excluded []domain.ReservationStatus) (*time.Time, error)
	ExpireEnded(ctx context.Context, now time.Time) ([]string, error)
	ActivateStarted(ctx context.Context, now time.Time) ([]string, error)
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository instantiates repository.
func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationColumns = `id, user_id, booking_type_id, resource_id, lock_key, start_time, end_time,
       guard_until, status, access_code, password_hash, created_at, updated_at`

func (r *reservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	const query = `
        INSERT INTO reservations (user_id, booking_type_id, resource_id, lock_key, start_time, end_time,
                                  guard_until, status, access_code, password_hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		reservation.UserID,
		reservation.BookingTypeID,
		reservation.ResourceID,
		reservation.LockKey,
		reservation.StartTime,
		reservation.EndTime,
		reservation.GuardUntil,
		reservation.Status,
		reservation.AccessCode,
		reservation.PasswordHash,
	).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	return mapWriteError(err)
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	defer rows.Close()
	items, err := scanReservations(rows)
	if err != nil {
		return nil, mapReadError(err)
	}
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &items[0], nil
}

func (r *reservationRepository) List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.BookingTypeID != nil {
		args = append(args, *filter.BookingTypeID)
		clauses = append(clauses, fmt.Sprintf("booking_type_id=$%d", len(args)))
	}
	if filter.ResourceID != nil {
		args = append(args, *filter.ResourceID)
		clauses = append(clauses, fmt.Sprintf("resource_id=$%d", len(args)))
	}
	if filter.LockKey != nil {
		args = append(args, *filter.LockKey)
		clauses = append(clauses, fmt.Sprintf("lock_key=$%d", len(args)))
	}
	if filter.ExcludeID != nil {
		args = append(args, *filter.ExcludeID)
		clauses = append(clauses, fmt.Sprintf("id<>$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.OverlapFrom != nil {
		args = append(args, *filter.OverlapFrom)
		clauses = append(clauses, fmt.Sprintf("end_time > $%d", len(args)))
	}
	if filter.OverlapTo != nil {
		args = append(args, *filter.OverlapTo)
		clauses = append(clauses, fmt.Sprintf("start_time < $%d", len(args)))
	}
	if filter.StartFrom != nil {
		args = append(args, *filter.StartFrom)
		clauses = append(clauses, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.StartTo != nil {
		args = append(args, *filter.StartTo)
		clauses = append(clauses, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s ORDER BY start_time ASC, id ASC`,
		reservationColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (r *reservationRepository) TransitionStatus(ctx context.Context, id string, status domain.ReservationStatus, from []domain.ReservationStatus) (bool, error) {
	const query = `
        UPDATE reservations SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)`
	cmd, err := r.pool.Exec(ctx, query, status, id, statusStrings(from))
	if err != nil {
		return false, mapWriteError(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *reservationRepository) SetStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	const query = `UPDATE reservations SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *reservationRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `UPDATE reservations SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *reservationRepository) LastCreatedAt(ctx context.Context, userID string, excluded []domain.ReservationStatus) (*time.Time, error) {
	const query = `
        SELECT MAX(created_at) FROM reservations
        WHERE user_id=$1 AND NOT (status = ANY($2))`
	var last *time.Time
	if err := r.pool.QueryRow(ctx, query, userID, statusStrings(excluded)).Scan(&last); err != nil {
		return nil, err
	}
	return last, nil
}

func (r *reservationRepository) ExpireEnded(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        UPDATE reservations SET status='EXPIRED', updated_at=NOW()
        WHERE status IN ('UPCOMING', 'ACTIVE') AND end_time <= $1
        RETURNING id`
	return r.collectIDs(ctx, query, now)
}

func (r *reservationRepository) ActivateStarted(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        UPDATE reservations SET status='ACTIVE', updated_at=NOW()
        WHERE status='UPCOMING' AND start_time <= $1 AND end_time > $1
        RETURNING id`
	return r.collectIDs(ctx, query, now)
}

func (r *reservationRepository) collectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	var result []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.UserID,
			&res.BookingTypeID,
			&res.ResourceID,
			&res.LockKey,
			&res.StartTime,
			&res.EndTime,
			&res.GuardUntil,
			&res.Status,
			&res.AccessCode,
			&res.PasswordHash,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func statusStrings(statuses []domain.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
