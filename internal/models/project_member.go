package models

import "time"

// ProjectMember joins users and projects. A user joins a project at most once.
type ProjectMember struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	ProjectID uint64    `gorm:"not null;uniqueIndex:idx_project_members_project_user" json:"project_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_project_members_project_user;index" json:"user_id"`
	CreatedAt time.Time `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
