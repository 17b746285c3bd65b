package domain

import "time"

// BookingType groups resources that are interchangeable for one purpose.
type BookingType struct {
	ID               string
	Name             string
	Description      string
	MaxDurationHours *int
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MaxDuration returns the type's own maximum, or zero when none is set.
func (b BookingType) MaxDuration() time.Duration {
	if b.MaxDurationHours == nil || *b.MaxDurationHours <= 0 {
		return 0
	}
	return time.Duration(*b.MaxDurationHours) * time.Hour
}
