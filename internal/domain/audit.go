package domain

import "time"

// AuditEntry is an immutable record of a user or admin action.
type AuditEntry struct {
	ID         string
	ActorID    *string
	Action     string
	TargetType string
	TargetID   string
	Details    map[string]any
	CreatedAt  time.Time
}
