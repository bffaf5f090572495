package accesscontrol

import "github.com/upb/wedding-platform/models"

// hostResources is the set of resources a host manages in full
var hostResources = resourceSet(models.WeddingResources...)

// guestGrants lists the only (action, resource) pairs open to guests.
// Guest update on guests means the caller's own record; callers enforce that.
var guestGrants = map[models.Action]map[models.Resource]struct{}{
	models.ActionRead: resourceSet(
		models.ResourceEvents,
		models.ResourceActivities,
		models.ResourceAccommodations,
		models.ResourcePhotos,
	),
	models.ActionUpdate: resourceSet(models.ResourceGuests),
	models.ActionCreate: resourceSet(models.ResourceRSVPs, models.ResourcePhotos),
}

func resourceSet(resources ...models.Resource) map[models.Resource]struct{} {
	set := make(map[models.Resource]struct{}, len(resources))
	for _, r := range resources {
		set[r] = struct{}{}
	}
	return set
}

// CanPerformAction evaluates the fixed role/resource/action decision table.
// It performs no lookups and has no side effects.
func CanPerformAction(role models.UserRole, resource models.Resource, action models.Action) bool {
	switch role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleHost:
		_, ok := hostResources[resource]
		return ok
	case models.RoleGuest:
		if action == models.ActionDelete {
			return false
		}
		_, ok := guestGrants[action][resource]
		return ok
	default:
		return false
	}
}

// IsWeddingResource reports whether resource belongs to the wedding domain
func IsWeddingResource(resource models.Resource) bool {
	_, ok := hostResources[resource]
	return ok
}
