package service

import "github.com/noah-isme/agenda-api/internal/models"

// SelectResources narrows resources to the selection, preserving order. An
// unknown id yields an empty slice.
func SelectResources(resources []models.Resource, selection models.ResourceSelection) []models.Resource {
	if selection.IsAll() {
		out := make([]models.Resource, len(resources))
		copy(out, resources)
		return out
	}
	for _, resource := range resources {
		if resource.ID == selection.ResourceID {
			return []models.Resource{resource}
		}
	}
	return []models.Resource{}
}

// BelongsTo reports whether appt is inside the selection.
func BelongsTo(appt models.Appointment, selection models.ResourceSelection) bool {
	return selection.IsAll() || appt.ResourceID == selection.ResourceID
}
