package booking

import (
	"fmt"
	"time"
)

// Kind classifies a rejection for the boundary layer.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPolicy     Kind = "policy"
	KindNotFound   Kind = "not_found"
)

// Reason tags the exact check that failed.
type Reason string

const (
	ReasonDurationOutOfBounds Reason = "duration_out_of_bounds"
	ReasonStartInPast         Reason = "start_in_past"
	ReasonTypeNotFound        Reason = "type_not_found"
	ReasonTypeInactive        Reason = "type_inactive"
	ReasonResourcesOffline    Reason = "resources_offline"
	ReasonCooldownActive      Reason = "cooldown_active"
	ReasonNoAvailability      Reason = "no_availability"
)

// Rejection is the typed failure returned for an expected business-rule
// failure. It is never used for infrastructure errors.
type Rejection struct {
	Reason  Reason
	Kind    Kind
	Message string
	// Remaining is set for cooldown rejections.
	Remaining time.Duration
}

func (r *Rejection) Error() string {
	return r.Message
}

// DaysRemaining rounds Remaining up to whole days.
func (r *Rejection) DaysRemaining() int {
	return ceilDays(r.Remaining)
}

func rejectDuration(d, lower, upper time.Duration) *Rejection {
	msg := fmt.Sprintf("duration out of bounds: %s requested, minimum %s", d, lower)
	if upper > 0 {
		msg = fmt.Sprintf("duration out of bounds: %s requested, allowed %s to %s", d, lower, upper)
	}
	return &Rejection{Reason: ReasonDurationOutOfBounds, Kind: KindValidation, Message: msg}
}

func rejectPastStart() *Rejection {
	return &Rejection{Reason: ReasonStartInPast, Kind: KindValidation, Message: "start time in the past"}
}

func rejectTypeNotFound(id string) *Rejection {
	return &Rejection{Reason: ReasonTypeNotFound, Kind: KindNotFound, Message: fmt.Sprintf("booking type %s not found", id)}
}

func rejectTypeInactive() *Rejection {
	return &Rejection{Reason: ReasonTypeInactive, Kind: KindPolicy, Message: "type inactive"}
}

func rejectResourcesOffline(detail string) *Rejection {
	return &Rejection{Reason: ReasonResourcesOffline, Kind: KindPolicy, Message: "resources offline: " + detail}
}

func rejectCooldown(remaining time.Duration, window time.Duration) *Rejection {
	return &Rejection{
		Reason:    ReasonCooldownActive,
		Kind:      KindPolicy,
		Remaining: remaining,
		Message: fmt.Sprintf("cooldown active: %d day(s) remaining, cooldown period is %d days",
			ceilDays(remaining), ceilDays(window)),
	}
}

func rejectNoAvailability() *Rejection {
	return &Rejection{
		Reason:  ReasonNoAvailability,
		Kind:    KindPolicy,
		Message: "no availability: all resources are booked or inside their maintenance gap",
	}
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}
