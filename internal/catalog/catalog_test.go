package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvoda/seminar-registration/internal/catalog"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

func TestNewSnapshot_SortsByName(t *testing.T) {
	snap := catalog.NewSnapshot(
		[]models.Role{
			{ID: 2, Name: "lecturer"},
			{ID: 1, Name: "attendee"},
		},
		[]models.Subevent{
			{ID: 11, Name: "saturday"},
			{ID: 10, Name: "friday"},
		},
	)

	require.Len(t, snap.Roles, 2)
	assert.Equal(t, "attendee", snap.Roles[0].Name)
	assert.Equal(t, "lecturer", snap.Roles[1].Name)
	require.Len(t, snap.Subevents, 2)
	assert.Equal(t, "friday", snap.Subevents[0].Name)
	assert.Equal(t, "saturday", snap.Subevents[1].Name)
	assert.Equal(t, 2, snap.CountExplicitSubevents())
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := catalog.NewSnapshot(
		[]models.Role{{ID: 1, Name: "attendee"}},
		[]models.Subevent{{ID: 10, Name: "friday"}},
	)

	require.NotNil(t, snap.RoleByID(1))
	assert.Equal(t, "attendee", snap.RoleByID(1).Name)
	assert.Nil(t, snap.RoleByID(99))

	require.NotNil(t, snap.SubeventByID(10))
	assert.Equal(t, "friday", snap.SubeventByID(10).Name)
	assert.Nil(t, snap.SubeventByID(99))
}

func TestSnapshot_RequiredRolesTransitive(t *testing.T) {
	// organizer requires lecturer, lecturer requires attendee.
	snap := catalog.NewSnapshot(
		[]models.Role{
			{ID: 1, Name: "attendee"},
			{ID: 2, Name: "lecturer", RequiredIDs: []int{1}},
			{ID: 3, Name: "organizer", RequiredIDs: []int{2}},
		},
		nil,
	)

	closure := snap.RequiredRolesTransitive(3)
	require.Len(t, closure, 2)
	assert.Equal(t, "attendee", closure[0].Name)
	assert.Equal(t, "lecturer", closure[1].Name)

	assert.Empty(t, snap.RequiredRolesTransitive(1))
}

func TestSnapshot_RequiredRolesTransitive_Cycle(t *testing.T) {
	snap := catalog.NewSnapshot(
		[]models.Role{
			{ID: 1, Name: "a", RequiredIDs: []int{2}},
			{ID: 2, Name: "b", RequiredIDs: []int{1}},
		},
		nil,
	)

	closure := snap.RequiredRolesTransitive(1)
	require.Len(t, closure, 1)
	assert.Equal(t, "b", closure[0].Name)
}

func TestSnapshot_RequiredSubeventsTransitive(t *testing.T) {
	snap := catalog.NewSnapshot(
		nil,
		[]models.Subevent{
			{ID: 10, Name: "friday"},
			{ID: 13, Name: "workshop", RequiredIDs: []int{10}},
			// edge to an ID outside the snapshot is ignored
			{ID: 14, Name: "excursion", RequiredIDs: []int{13, 99}},
		},
	)

	closure := snap.RequiredSubeventsTransitive(14)
	require.Len(t, closure, 2)
	assert.Equal(t, "friday", closure[0].Name)
	assert.Equal(t, "workshop", closure[1].Name)
}
