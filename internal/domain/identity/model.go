package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleParent Role = "parent"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// User is a row of the externally managed users table.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     *string   `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsDoctor() bool { return u.Role == RoleDoctor }

// Patient is a row of the externally managed patients table. A patient is a
// child registered by a parent user.
type Patient struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
}
