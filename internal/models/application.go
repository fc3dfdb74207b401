package models

import "time"

// Application states. An application starts waiting for payment (or paid
// right away when the fee is zero) and may later be cancelled by an
// administrator; cancellation is outside the registration engine.
const (
	ApplicationStateWaitingForPayment = "waiting_for_payment"
	ApplicationStatePaid              = "paid"
	ApplicationStateCancelled         = "cancelled"
)

// Payment methods.
const (
	PaymentMethodBank = "bank"
	PaymentMethodCash = "cash"
)

// Application is one registration record of a user. The first application
// carries the user's roles; later applications only add sub-events.
// ApplicationOrder is a globally unique, monotonically increasing sequence
// number assigned at creation.
type Application struct {
	ID               int        `json:"id"`
	UserUID          string     `json:"user_uid"`
	SubeventIDs      []int      `json:"subevent_ids"`
	Fee              int        `json:"fee"`
	VariableSymbol   string     `json:"variable_symbol"` // payment reference printed on the invoice
	ApplicationOrder int        `json:"application_order"`
	ApplicationDate  time.Time  `json:"application_date"`
	MaturityDate     *time.Time `json:"maturity_date"`
	PaymentMethod    *string    `json:"payment_method"`
	PaymentDate      *time.Time `json:"payment_date"`
	State            string     `json:"state"`
	First            bool       `json:"first"`
}

// RegistrationUpdate carries one atomic edit of a user's registration.
// NewRoleIDs and NewSubeventIDs name the items the user did not hold before
// the edit; only those are capacity-rechecked under row locks. SubeventIDs ==
// nil leaves the application's sub-events untouched (seminar without explicit
// sub-events).
type RegistrationUpdate struct {
	UserUID        string
	RoleIDs        []int
	NewRoleIDs     []int
	Approved       bool
	ApplicationID  int
	SubeventIDs    []int
	NewSubeventIDs []int
	Fee            int
	State          string
}

// DummyAddSubevents carries the JSON body of the add-subevents request.
type DummyAddSubevents struct {
	SubeventIDs []int `json:"subevent_ids" validate:"required,min=1"`
}

// DummyEditApplication carries the JSON body of the edit request. Sub-event
// IDs may be empty when the seminar has no explicit sub-events.
type DummyEditApplication struct {
	RoleIDs     []int `json:"role_ids" validate:"required,min=1"`
	SubeventIDs []int `json:"subevent_ids"`
}
