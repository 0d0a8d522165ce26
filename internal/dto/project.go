package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedBy   uint64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectMemberDTO represents a member of a project
type ProjectMemberDTO struct {
	User     UserDTO   `json:"user"`
	JoinedAt time.Time `json:"joined_at"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		CreatedBy:   project.CreatedBy,
		CreatedAt:   project.CreatedAt,
	}
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}
	return items
}

// ToProjectMemberDTOs converts project memberships with preloaded users
func ToProjectMemberDTOs(members []models.ProjectMember) []ProjectMemberDTO {
	items := make([]ProjectMemberDTO, len(members))
	for i, member := range members {
		items[i] = ProjectMemberDTO{
			User:     ToUserDTO(member.User),
			JoinedAt: member.CreatedAt,
		}
	}
	return items
}
