package booking

import (
	"context"
	"errors"

	"github.com/spec-kit/labbook/internal/domain"
)

// ErrNoResourceAvailable is returned when every candidate resource fails.
var ErrNoResourceAvailable = errors.New("no resource available")

// Allocator picks a concrete resource for a type-level request.
//
// Resources are tried in mapping order and the first one that is operational
// and conflict-free wins. The order is observable to users and must stay
// stable.
type Allocator struct {
	directory *Directory
	checker   *ConflictChecker
}

// NewAllocator constructs an Allocator.
func NewAllocator(directory *Directory, checker *ConflictChecker) *Allocator {
	return &Allocator{directory: directory, checker: checker}
}

// Allocate loads the type's resources and returns the first fit.
func (a *Allocator) Allocate(ctx context.Context, bookingTypeID string, candidate Interval, excludeID string) (*domain.Resource, error) {
	resources, err := a.directory.Resources(ctx, bookingTypeID)
	if err != nil {
		return nil, err
	}
	return a.FirstFit(ctx, resources, candidate, excludeID)
}

// FirstFit walks resources in order, skipping non-operational ones.
func (a *Allocator) FirstFit(ctx context.Context, resources []domain.Resource, candidate Interval, excludeID string) (*domain.Resource, error) {
	for i := range resources {
		res := resources[i]
		if !res.Operational() {
			continue
		}
		ok, err := a.checker.Available(ctx, res.ID, candidate, excludeID)
		if err != nil {
			return nil, err
		}
		if ok {
			return &res, nil
		}
	}
	return nil, ErrNoResourceAvailable
}
