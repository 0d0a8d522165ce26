package models

import (
	"time"
)

// Role is the fixed, global role a user registers with.
type Role string

const (
	RoleManager   Role = "manager"
	RoleTeamLead  Role = "team_lead"
	RoleDeveloper Role = "developer"
)

// Roles lists every valid role.
var Roles = []Role{RoleManager, RoleTeamLead, RoleDeveloper}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleTeamLead, RoleDeveloper:
		return true
	}
	return false
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Memberships   []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
	AssignedTasks []Task          `gorm:"foreignKey:AssigneeID" json:"-"`
}
