// Package eligibility implements the pure selection checks of the
// registration engine: capacity, registration window, mutual incompatibility
// and transitive prerequisites. All checks are side-effect-free and total;
// a nil result means the selection passes.
package eligibility

import (
	"time"

	"github.com/mkalvoda/seminar-registration/internal/catalog"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

// CheckRoleCapacities fails when a selected capacity-limited role has no free
// slot left, unless the user already holds the role (re-confirmation does not
// consume new capacity). Unlimited roles pass vacuously.
func CheckRoleCapacities(snap *catalog.Snapshot, selectedIDs []int, user *models.User) error {
	var full []string
	for _, id := range selectedIDs {
		role := snap.RoleByID(id)
		if role == nil || !role.HasLimitedCapacity() {
			continue
		}
		if role.UnoccupiedCapacity() < 1 && !user.HasRole(role.ID) {
			full = append(full, role.Name)
		}
	}
	if len(full) > 0 {
		return &CapacityError{Items: full}
	}
	return nil
}

// CheckRolesRegisterable fails when a selected role is outside its
// registration window and the user does not already hold it.
func CheckRolesRegisterable(snap *catalog.Snapshot, selectedIDs []int, user *models.User, now time.Time) error {
	var closed []string
	for _, id := range selectedIDs {
		role := snap.RoleByID(id)
		if role == nil {
			continue
		}
		if !role.IsRegisterableAt(now) && !user.HasRole(role.ID) {
			closed = append(closed, role.Name)
		}
	}
	if len(closed) > 0 {
		return &NotRegisterableError{Roles: closed}
	}
	return nil
}

// CheckRoles walks the FULL role catalog and verifies the candidate selection
// against each catalog role: first incompatibility, then the transitive
// requirement closure. Iterating the catalog rather than the selection keeps
// constraints of currently-held roles enforced even when the user is not
// re-selecting them. Evaluation stops at the first failing catalog role.
func CheckRoles(snap *catalog.Snapshot, candidateIDs []int) error {
	selected := idSet(candidateIDs)
	for i := range snap.Roles {
		role := &snap.Roles[i]
		if !selected[role.ID] {
			continue
		}
		var conflicting []string
		for _, other := range snap.Roles {
			if selected[other.ID] && contains(role.IncompatibleIDs, other.ID) {
				conflicting = append(conflicting, other.Name)
			}
		}
		if len(conflicting) > 0 {
			return &IncompatibleError{Item: role.Name, Conflicting: conflicting}
		}
		var missing []string
		for _, required := range snap.RequiredRolesTransitive(role.ID) {
			if !selected[required.ID] {
				missing = append(missing, required.Name)
			}
		}
		if len(missing) > 0 {
			return &RequiredError{Item: role.Name, Missing: missing}
		}
	}
	return nil
}

// CheckSubeventCapacities fails when a selected capacity-limited sub-event
// has no free slot left, unless the user already holds it.
func CheckSubeventCapacities(snap *catalog.Snapshot, selectedIDs []int, user *models.User) error {
	var full []string
	for _, id := range selectedIDs {
		subevent := snap.SubeventByID(id)
		if subevent == nil || !subevent.HasLimitedCapacity() {
			continue
		}
		if subevent.UnoccupiedCapacity() < 1 && !user.HasSubevent(subevent.ID) {
			full = append(full, subevent.Name)
		}
	}
	if len(full) > 0 {
		return &CapacityError{Items: full}
	}
	return nil
}

// CheckSubevents walks all explicit sub-events and verifies the candidate
// selection against each: first incompatibility, then the transitive
// requirement closure. Evaluation stops at the first failing sub-event.
func CheckSubevents(snap *catalog.Snapshot, candidateIDs []int) error {
	selected := idSet(candidateIDs)
	for i := range snap.Subevents {
		subevent := &snap.Subevents[i]
		if !selected[subevent.ID] {
			continue
		}
		var conflicting []string
		for _, other := range snap.Subevents {
			if selected[other.ID] && contains(subevent.IncompatibleIDs, other.ID) {
				conflicting = append(conflicting, other.Name)
			}
		}
		if len(conflicting) > 0 {
			return &IncompatibleError{Item: subevent.Name, Conflicting: conflicting}
		}
		var missing []string
		for _, required := range snap.RequiredSubeventsTransitive(subevent.ID) {
			if !selected[required.ID] {
				missing = append(missing, required.Name)
			}
		}
		if len(missing) > 0 {
			return &RequiredError{Item: subevent.Name, Missing: missing}
		}
	}
	return nil
}

func idSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
