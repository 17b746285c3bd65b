package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSlotConflict is returned when the reservation overlap guard rejects
	// a write because another live reservation already holds the slot.
	ErrSlotConflict = errors.New("reservation slot already taken")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a foreign key blocks the write.
	ErrReferenced = errors.New("record referenced by other records")
)

// mapWriteError translates constraint violations into repository sentinels.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return fmt.Errorf("%w (%s)", ErrSlotConflict, pgErr.ConstraintName)
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w (%s)", ErrDuplicate, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w (%s)", ErrReferenced, pgErr.ConstraintName)
	case pgerrcode.InvalidTextRepresentation:
		return pgx.ErrNoRows
	}
	return err
}

// mapReadError reports ids that do not parse as uuid as missing rows.
func mapReadError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return pgx.ErrNoRows
	}
	return err
}
