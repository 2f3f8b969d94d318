package models

import (
	"fmt"
	"time"
)

// Role is a user's privilege level. Roles are totally ordered.
type Role int16

const (
	RoleUser      Role = 0
	RoleModerator Role = 1
	RoleAdmin     Role = 2
)

// ParseRole converts an integer from the API into a Role, rejecting values
// outside the known set.
func ParseRole(v int) (Role, error) {
	r := Role(v)
	if !r.Valid() {
		return 0, NewFieldValidationError("invalid_role", fmt.Sprintf("Invalid role: %d", v))
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", int16(r))
	}
}

// User is a board account. PasswordHash never leaves the persistence layer.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         Role      `gorm:"not null;default:0;index" json:"role"`
	CASSubject   *string   `gorm:"column:cas_subject;size:255;uniqueIndex" json:"-"`
	CreatedOn    time.Time `gorm:"column:created_on;autoCreateTime" json:"created_on"`
}

// TableName pins the table name.
func (User) TableName() string { return "users" }

// IsModerator reports whether the user may moderate content.
func (u *User) IsModerator() bool { return u.Role.AtLeast(RoleModerator) }

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool { return u.Role.AtLeast(RoleAdmin) }
