package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/agenda-api/internal/models"
)

func testResources() []models.Resource {
	return []models.Resource{
		{ID: 3, DisplayName: "Carla", Active: true},
		{ID: 1, DisplayName: "Ana", Active: true},
		{ID: 2, DisplayName: "Bruno", Active: true},
	}
}

func TestSelectResourcesAllPreservesOrder(t *testing.T) {
	resources := testResources()
	selected := SelectResources(resources, models.AllResources())
	assert.Equal(t, resources, selected)

	selected[0].DisplayName = "changed"
	assert.Equal(t, "Carla", resources[0].DisplayName)
}

func TestSelectResourcesSingleAndUnknown(t *testing.T) {
	selected := SelectResources(testResources(), models.SingleResource(1))
	assert.Len(t, selected, 1)
	assert.Equal(t, "Ana", selected[0].DisplayName)

	none := SelectResources(testResources(), models.SingleResource(99))
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestBelongsTo(t *testing.T) {
	appt := testAppointment(1, 2, "2024-05-06", "09:00", "10:00")
	assert.True(t, BelongsTo(appt, models.AllResources()))
	assert.True(t, BelongsTo(appt, models.SingleResource(2)))
	assert.False(t, BelongsTo(appt, models.SingleResource(3)))
}
