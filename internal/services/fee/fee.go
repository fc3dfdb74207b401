// Package fee computes the total registration fee for a combination of roles
// and sub-events.
package fee

import "github.com/mkalvoda/seminar-registration/internal/models"

// CountFee returns the total fee for the selection.
//
// Roles with an explicit fee take precedence: when includeRoleFees is set and
// at least one selected role defines a fee, the total is the sum of the
// explicit role fees and sub-event fees are ignored. When no selected role
// defines a fee, the total is the sum of the sub-event fees.
//
// includeRoleFees distinguishes the two call sites of the coordinator: every
// edit charges role fees, while a sub-event-only addition passes false
// because the role fees were already charged on the first application.
func CountFee(roles []models.Role, subevents []models.Subevent, includeRoleFees bool) int {
	if includeRoleFees {
		total := 0
		explicit := false
		for _, role := range roles {
			if role.Fee != nil {
				explicit = true
				total += *role.Fee
			}
		}
		if explicit {
			return total
		}
	}
	total := 0
	for _, subevent := range subevents {
		total += subevent.Fee
	}
	return total
}
