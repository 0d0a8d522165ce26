package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrCreateProject is returned when creating the project row fails inside the create transaction.
	ErrCreateProject = errors.New("project repository: create project failed")
	// ErrCreateCreatorMember is returned when adding the creator as a member fails inside the create transaction.
	ErrCreateCreatorMember = errors.New("project repository: create creator membership failed")
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithCreator creates the project and the creator's membership atomically.
func (r *GormProjectRepository) CreateWithCreator(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateProject, err)
		}

		member := &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    project.CreatedBy,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateCreatorMember, err)
		}

		return nil
	})
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByMember lists all projects a user is a member of
func (r *GormProjectRepository) ListByMember(ctx context.Context, userID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.id").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Delete removes the project's tasks, then its memberships, then the project
// itself. Nothing is removed if any step fails.
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, id).Error
	})
}

// AddMember adds a member to a project. A second membership for the same
// user fails with gorm.ErrDuplicatedKey.
func (r *GormProjectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// IsMember reports whether the user belongs to the project
func (r *GormProjectRepository) IsMember(ctx context.Context, projectID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMembers lists all members of a project
func (r *GormProjectRepository) ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("id").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
