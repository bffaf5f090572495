package models

import "github.com/google/uuid"

// Resource is a domain noun subject to action-based permission checks
type Resource string

const (
	ResourceGuests         Resource = "guests"
	ResourceEvents         Resource = "events"
	ResourceActivities     Resource = "activities"
	ResourceRSVPs          Resource = "rsvps"
	ResourceVendors        Resource = "vendors"
	ResourceAccommodations Resource = "accommodations"
	ResourcePhotos         Resource = "photos"
	ResourceEmails         Resource = "emails"
	ResourceBudget         Resource = "budget"
	ResourceTransportation Resource = "transportation"

	// Platform resources outside the wedding domain
	ResourceSettings  Resource = "settings"
	ResourceUsers     Resource = "users"
	ResourceAuditLogs Resource = "audit_logs"
)

// WeddingResources are the resources a host manages
var WeddingResources = []Resource{
	ResourceGuests,
	ResourceEvents,
	ResourceActivities,
	ResourceRSVPs,
	ResourceVendors,
	ResourceAccommodations,
	ResourcePhotos,
	ResourceEmails,
	ResourceBudget,
	ResourceTransportation,
}

// Action is the operation attempted on a resource
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllActions lists every action
var AllActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// PermissionCheck asks whether role may perform action on resource.
// It is never persisted.
type PermissionCheck struct {
	UserID   uuid.UUID
	Role     UserRole
	Resource Resource
	Action   Action
}

// GroupAccessCheck asks whether a user may access a group
type GroupAccessCheck struct {
	UserID  uuid.UUID
	GroupID uuid.UUID
}
