package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithCreator creates a project and the creator's membership
	// within a single transaction.
	CreateWithCreator(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// ListByMember lists all projects a user is a member of
	ListByMember(ctx context.Context, userID uint64) ([]models.Project, error)

	// Delete deletes a project with its tasks and memberships in a transaction
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// IsMember reports whether the user belongs to the project
	IsMember(ctx context.Context, projectID, userID uint64) (bool, error)

	// ListMembers lists all members of a project with their users
	ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindInProject finds a task by ID that belongs to the given project
	FindInProject(ctx context.Context, projectID, taskID uint64) (*models.Task, error)

	// List retrieves tasks of a project with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateStatus sets the status of a task
	UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) error

	// Delete hard deletes a task
	Delete(ctx context.Context, id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID uint64
	Status    *models.TaskStatus
	Page      int
	PageSize  int
}
