package booking

import (
	"context"

	"github.com/spec-kit/labbook/internal/domain"
)

// ResourceSource lists the resources mapped to a booking type in mapping
// order.
type ResourceSource interface {
	ListForType(ctx context.Context, bookingTypeID string) ([]domain.Resource, error)
}

// Directory is a read-only view of the resources behind a booking type.
type Directory struct {
	resources ResourceSource
}

// NewDirectory constructs a Directory.
func NewDirectory(resources ResourceSource) *Directory {
	return &Directory{resources: resources}
}

// Resources returns every resource mapped to the type, in stable order.
func (d *Directory) Resources(ctx context.Context, bookingTypeID string) ([]domain.Resource, error) {
	return d.resources.ListForType(ctx, bookingTypeID)
}

// Operational keeps only resources whose flags permit allocation, preserving
// order.
func Operational(resources []domain.Resource) []domain.Resource {
	out := make([]domain.Resource, 0, len(resources))
	for _, r := range resources {
		if r.Operational() {
			out = append(out, r)
		}
	}
	return out
}
