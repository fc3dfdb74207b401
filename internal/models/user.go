package models

// User represents a registered user of the system. RoleIDs is the user's
// current effective role set; SubeventIDs is the union of sub-events over all
// of the user's applications. Both mutate only as a side effect of successful
// application mutations.
type User struct {
	UID          string // uuid
	Username     string
	Email        string
	PasswordHash string
	RoleIDs      []int
	SubeventIDs  []int
	Approved     bool
	Attended     bool
}

// HasRole reports whether the user currently holds the role.
func (u *User) HasRole(roleID int) bool {
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasSubevent reports whether any of the user's applications contains the
// sub-event.
func (u *User) HasSubevent(subeventID int) bool {
	for _, id := range u.SubeventIDs {
		if id == subeventID {
			return true
		}
	}
	return false
}

// DummyRegisterUser carries the JSON body of the register request.
type DummyRegisterUser struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLoginUser carries the JSON body of the login request.
type DummyLoginUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
