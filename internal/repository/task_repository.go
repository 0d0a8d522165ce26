package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindInProject finds a task by ID scoped to a project
func (r *GormTaskRepository) FindInProject(ctx context.Context, projectID, taskID uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.project_id = ?", filter.ProjectID)
		if filter.Status != nil {
			q = q.Where("tasks.status = ?", *filter.Status)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query().Order("tasks.id ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(Paginate(filter.Page, filter.PageSize))
	}

	if err := listQuery.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateStatus sets only the status column of the task
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) error {
	return r.db.WithContext(ctx).Model(task).Update("status", status).Error
}

// Delete hard deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}

// Paginate applies page/size pagination to a GORM query
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
