package domain

import "time"

// ResourceStatus is the operational flag of a resource.
type ResourceStatus string

const (
	ResourceStatusOnline      ResourceStatus = "ONLINE"
	ResourceStatusOffline     ResourceStatus = "OFFLINE"
	ResourceStatusMaintenance ResourceStatus = "MAINTENANCE"
)

// Valid reports whether s is a known status.
func (s ResourceStatus) Valid() bool {
	return s == ResourceStatusOnline || s == ResourceStatusOffline || s == ResourceStatusMaintenance
}

// ResourceType describes how a user connects to a resource.
type ResourceType string

const (
	ResourceTypeSSH    ResourceType = "SSH"
	ResourceTypeRDP    ResourceType = "RDP"
	ResourceTypeWebURL ResourceType = "WEB_URL"
	ResourceTypeVPN    ResourceType = "VPN"
	ResourceTypeAPIKey ResourceType = "API_KEY"
)

// Valid reports whether t is a known type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeSSH, ResourceTypeRDP, ResourceTypeWebURL, ResourceTypeVPN, ResourceTypeAPIKey:
		return true
	}
	return false
}

// Resource is a concrete bookable asset such as an SSH host.
type Resource struct {
	ID                 string
	Name               string
	Description        string
	Type               ResourceType
	Active             bool
	Status             ResourceStatus
	ConnectionMetadata map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Operational reports whether the resource may be allocated. MAINTENANCE
// resources stay allocatable; only OFFLINE or deactivated ones are skipped.
func (r Resource) Operational() bool {
	return r.Active && !r.Offline()
}

// Offline reports whether the operational flag is OFFLINE.
func (r Resource) Offline() bool {
	return r.Status == ResourceStatusOffline
}
