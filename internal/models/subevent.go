package models

// Subevent represents an optional part of the seminar (a workshop, a trip, an
// extra day). Implicit sub-events are always-available defaults and never take
// part in capacity, incompatibility or requirement checks.
type Subevent struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Fee             int    `json:"fee"`
	Capacity        *int   `json:"capacity"` // nil = unlimited
	Occupancy       int    `json:"occupancy"`
	Implicit        bool   `json:"implicit"`
	IncompatibleIDs []int  `json:"incompatible_ids"`
	RequiredIDs     []int  `json:"required_ids"` // direct prerequisites, closure is computed by the catalog
}

// HasLimitedCapacity reports whether the sub-event has a capacity limit.
func (s *Subevent) HasLimitedCapacity() bool {
	return s.Capacity != nil
}

// UnoccupiedCapacity returns the number of free slots. For unlimited
// sub-events it returns a large positive value so callers never treat them
// as full.
func (s *Subevent) UnoccupiedCapacity() int {
	if s.Capacity == nil {
		return int(^uint(0) >> 1)
	}
	return *s.Capacity - s.Occupancy
}
