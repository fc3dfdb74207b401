// Package models contains the domain structures of the seminar registration
// system: roles, sub-events, applications and users, together with helper
// types for data arriving from external sources (JSON requests).
package models

import "time"

// Role represents a seminar role a user can register for (participant,
// lector, organizer, ...). Capacity and Fee are pointers: nil Capacity means
// the role is unlimited, nil Fee means the fee is derived from the fees of
// the selected sub-events. Occupancy is derived by counting current holders
// at load time, it is never stored.
type Role struct {
	ID                        int        `json:"id"`
	Name                      string     `json:"name"`
	Fee                       *int       `json:"fee"`      // nil = fee derived from sub-events
	Capacity                  *int       `json:"capacity"` // nil = unlimited
	Occupancy                 int        `json:"occupancy"`
	RegisterableFrom          *time.Time `json:"registerable_from"`
	RegisterableTo            *time.Time `json:"registerable_to"`
	IncompatibleIDs           []int      `json:"incompatible_ids"` // roles that cannot be held together with this one
	RequiredIDs               []int      `json:"required_ids"`     // direct prerequisites, closure is computed by the catalog
	ApprovedAfterRegistration bool       `json:"approved_after_registration"` // false = registering needs manual approval
	System                    bool       `json:"system"`                      // system roles cannot be deleted
}

// HasLimitedCapacity reports whether the role has a capacity limit.
func (r *Role) HasLimitedCapacity() bool {
	return r.Capacity != nil
}

// UnoccupiedCapacity returns the number of free slots. For unlimited roles
// it returns a large positive value so callers never treat them as full.
func (r *Role) UnoccupiedCapacity() int {
	if r.Capacity == nil {
		return int(^uint(0) >> 1)
	}
	return *r.Capacity - r.Occupancy
}

// IsRegisterableAt reports whether the role accepts new registrants at the
// given instant. A missing bound is treated as open on that side.
func (r *Role) IsRegisterableAt(now time.Time) bool {
	if r.RegisterableFrom != nil && now.Before(*r.RegisterableFrom) {
		return false
	}
	if r.RegisterableTo != nil && !now.Before(*r.RegisterableTo) {
		return false
	}
	return true
}
