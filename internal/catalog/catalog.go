// Package catalog provides a read-only snapshot of the role and sub-event
// catalog for one registration request. The snapshot carries derived
// occupancy and the incompatibility/requirement adjacency, and computes
// transitive requirement closures on demand.
package catalog

import (
	"sort"

	"github.com/mkalvoda/seminar-registration/internal/models"
)

// Snapshot is a consistent view of the catalog taken at the start of a
// registration operation. Roles contains the roles registerable now or
// already held by the acting user, ordered by name; Subevents contains the
// explicit sub-events, ordered by name.
type Snapshot struct {
	Roles     []models.Role
	Subevents []models.Subevent

	roleByID     map[int]*models.Role
	subeventByID map[int]*models.Subevent
}

// NewSnapshot builds a snapshot over the given catalog entries. Input order
// is not trusted; both sequences are sorted by name.
func NewSnapshot(roles []models.Role, subevents []models.Subevent) *Snapshot {
	s := &Snapshot{
		Roles:        roles,
		Subevents:    subevents,
		roleByID:     make(map[int]*models.Role, len(roles)),
		subeventByID: make(map[int]*models.Subevent, len(subevents)),
	}
	sort.Slice(s.Roles, func(i, j int) bool { return s.Roles[i].Name < s.Roles[j].Name })
	sort.Slice(s.Subevents, func(i, j int) bool { return s.Subevents[i].Name < s.Subevents[j].Name })
	for i := range s.Roles {
		s.roleByID[s.Roles[i].ID] = &s.Roles[i]
	}
	for i := range s.Subevents {
		s.subeventByID[s.Subevents[i].ID] = &s.Subevents[i]
	}
	return s
}

// RoleByID returns the role with the given ID, or nil when it is not part of
// the snapshot.
func (s *Snapshot) RoleByID(id int) *models.Role {
	return s.roleByID[id]
}

// SubeventByID returns the explicit sub-event with the given ID, or nil.
func (s *Snapshot) SubeventByID(id int) *models.Subevent {
	return s.subeventByID[id]
}

// CountExplicitSubevents returns the number of explicit sub-events in the
// snapshot. A seminar without explicit sub-events skips all sub-event logic.
func (s *Snapshot) CountExplicitSubevents() int {
	return len(s.Subevents)
}

// RequiredRolesTransitive returns the full prerequisite closure of the role,
// in catalog (name) order. The walk keeps a visited set, so cyclic
// requirement configuration cannot loop; the starting role itself is not part
// of its own closure.
func (s *Snapshot) RequiredRolesTransitive(roleID int) []models.Role {
	ids := s.closure(roleID, func(id int) []int {
		if r := s.roleByID[id]; r != nil {
			return r.RequiredIDs
		}
		return nil
	})
	out := make([]models.Role, 0, len(ids))
	for _, r := range s.Roles {
		if ids[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// RequiredSubeventsTransitive returns the full prerequisite closure of the
// sub-event, in catalog (name) order.
func (s *Snapshot) RequiredSubeventsTransitive(subeventID int) []models.Subevent {
	ids := s.closure(subeventID, func(id int) []int {
		if se := s.subeventByID[id]; se != nil {
			return se.RequiredIDs
		}
		return nil
	})
	out := make([]models.Subevent, 0, len(ids))
	for _, se := range s.Subevents {
		if ids[se.ID] {
			out = append(out, se)
		}
	}
	return out
}

// closure walks the "requires" edges breadth-first from start and returns the
// set of reachable IDs, excluding start itself.
func (s *Snapshot) closure(start int, edges func(int) []int) map[int]bool {
	visited := map[int]bool{start: true}
	result := make(map[int]bool)
	queue := append([]int(nil), edges(start)...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		result[id] = true
		queue = append(queue, edges(id)...)
	}
	return result
}
