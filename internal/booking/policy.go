package booking

import (
	"fmt"
	"time"

	"github.com/spec-kit/labbook/internal/config"
)

// Exclusivity selects what a reservation holds exclusively.
type Exclusivity string

const (
	// ExclusivityResource makes each discrete resource exclusive; the
	// Allocator picks one resource per reservation.
	ExclusivityResource Exclusivity = "resource"
	// ExclusivityType makes the booking type as a whole exclusive.
	ExclusivityType Exclusivity = "type"
)

// ResourcePolicy decides how offline resources affect a booking type.
type ResourcePolicy string

const (
	// ResourcePolicyAll rejects the whole type when any mapped resource is
	// OFFLINE.
	ResourcePolicyAll ResourcePolicy = "all"
	// ResourcePolicyAny accepts the type while at least one mapped resource
	// is not OFFLINE.
	ResourcePolicyAny ResourcePolicy = "any"
)

// Policy carries every tunable rule the engine applies.
type Policy struct {
	MinDuration        time.Duration
	DefaultMaxDuration time.Duration
	Buffer             time.Duration
	Cooldown           time.Duration
	Exclusivity        Exclusivity
	ResourcePolicy     ResourcePolicy
	// CooldownCountsCancelled keeps cancelled reservations in the cooldown
	// lookback.
	CooldownCountsCancelled bool
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MinDuration:        time.Hour,
		DefaultMaxDuration: 8 * time.Hour,
		Buffer:             2 * time.Hour,
		Cooldown:           3 * 24 * time.Hour,
		Exclusivity:        ExclusivityResource,
		ResourcePolicy:     ResourcePolicyAll,
	}
}

// PolicyFromConfig converts booking configuration into an engine policy.
func PolicyFromConfig(cfg config.BookingConfig) (Policy, error) {
	p := Policy{
		MinDuration:             time.Duration(cfg.MinDurationHours) * time.Hour,
		DefaultMaxDuration:      time.Duration(cfg.DefaultMaxDurationHours) * time.Hour,
		Buffer:                  time.Duration(cfg.BufferHours) * time.Hour,
		Cooldown:                time.Duration(cfg.CooldownDays) * 24 * time.Hour,
		Exclusivity:             Exclusivity(cfg.Exclusivity),
		ResourcePolicy:          ResourcePolicy(cfg.ResourcePolicy),
		CooldownCountsCancelled: cfg.CooldownCountsCancelled,
	}
	switch p.Exclusivity {
	case ExclusivityResource, ExclusivityType:
	default:
		return Policy{}, fmt.Errorf("unknown exclusivity %q", cfg.Exclusivity)
	}
	switch p.ResourcePolicy {
	case ResourcePolicyAll, ResourcePolicyAny:
	default:
		return Policy{}, fmt.Errorf("unknown resource policy %q", cfg.ResourcePolicy)
	}
	return p, nil
}

// MaxDurationFor returns the effective maximum for a type, zero meaning unbounded.
func (p Policy) MaxDurationFor(typeMax time.Duration) time.Duration {
	if typeMax > 0 {
		return typeMax
	}
	return p.DefaultMaxDuration
}

// LockKey returns the storage exclusivity key for a reservation.
func (p Policy) LockKey(bookingTypeID, resourceID string) string {
	if p.Exclusivity == ExclusivityType {
		return TypeLockKey(bookingTypeID)
	}
	return resourceID
}

// TypeLockKey is the exclusivity key used when a whole booking type is exclusive.
func TypeLockKey(bookingTypeID string) string {
	return "type:" + bookingTypeID
}
