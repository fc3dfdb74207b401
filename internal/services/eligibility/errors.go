package eligibility

import (
	"fmt"
	"strings"
)

// CapacityError reports capacity-limited items with no remaining slots for a
// user who does not already hold them.
type CapacityError struct {
	Items []string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no remaining capacity: %s", strings.Join(e.Items, ", "))
}

// NotRegisterableError reports roles whose registration window is closed for
// a user who does not already hold them.
type NotRegisterableError struct {
	Roles []string
}

func (e *NotRegisterableError) Error() string {
	return fmt.Sprintf("registration is closed for: %s", strings.Join(e.Roles, ", "))
}

// IncompatibleError reports a selected item together with the selected items
// it is incompatible with, in catalog order.
type IncompatibleError struct {
	Item        string
	Conflicting []string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%s cannot be combined with: %s", e.Item, strings.Join(e.Conflicting, ", "))
}

// RequiredError reports a selected item whose prerequisites are not all part
// of the selection, naming the missing ones in catalog order.
type RequiredError struct {
	Item    string
	Missing []string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("%s requires: %s", e.Item, strings.Join(e.Missing, ", "))
}
