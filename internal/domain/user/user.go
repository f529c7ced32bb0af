package user

import (
	"database/sql"
	"time"
)

// User is a referenced account holder. This service reads users to address
// deliveries; it never mutates them.
type User struct {
	ID          string
	Email       string
	FirstName   string
	LastName    sql.NullString
	DeviceToken sql.NullString // Push delivery target; absent for most users.
	CreatedAt   time.Time
}

// DisplayName picks the best available name for message interpolation.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}
