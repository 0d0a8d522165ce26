package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTitleRequired     = fmt.Errorf("%w: title is required", apierrors.ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: status must be one of todo, in_progress, done", apierrors.ErrValidation)
	ErrTaskNotFound      = fmt.Errorf("%w: task not found", apierrors.ErrNotFound)
	ErrAssigneeNotMember = fmt.Errorf("%w: assignee must be a member of the project", apierrors.ErrValidation)
	ErrCannotCreateTask  = fmt.Errorf("%w: only manager members of the project can create tasks", apierrors.ErrAuthorization)
	ErrNotTaskAssignee   = fmt.Errorf("%w: only the assignee can change the status of a task", apierrors.ErrAuthorization)
	ErrCannotDeleteTask  = fmt.Errorf("%w: only manager members of the project can delete tasks", apierrors.ErrAuthorization)
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	Title       string
	Description *string
	AssigneeID  *uint64
}

// ListTasksInput represents filters for listing the tasks of a project
type ListTasksInput struct {
	ProjectID uint64
	Status    *models.TaskStatus
	Page      int
	PageSize  int
}

// CreateTask creates a task in a project. The task starts in todo; an
// assignee, when given, must already be a member of the project.
func (s *TaskService) CreateTask(ctx context.Context, actor policy.Principal, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.AssigneeID != nil && *input.AssigneeID == 0 {
		return nil, ErrAssigneeNotMember
	}

	project, err := findProject(ctx, s.projectRepo, input.ProjectID)
	if err != nil {
		return nil, err
	}

	res := policy.Resource{ProjectCreatedBy: project.CreatedBy}
	if res.IsMember, err = s.projectRepo.IsMember(ctx, project.ID, actor.ID); err != nil {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	if input.AssigneeID != nil {
		res.AssigneeRequested = true
		if res.AssigneeIsMember, err = s.projectRepo.IsMember(ctx, project.ID, *input.AssigneeID); err != nil {
			return nil, fmt.Errorf("failed to verify assignee membership: %w", err)
		}
	}

	decision := policy.Evaluate(actor, policy.ActionCreateTask, res)
	if !decision.Allowed {
		if decision.Unmet == policy.RequireAssigneeMember {
			return nil, ErrAssigneeNotMember
		}
		return nil, ErrCannotCreateTask
	}

	task := &models.Task{
		Title:       title,
		Description: trimOptional(input.Description),
		Status:      models.TaskStatusTodo,
		ProjectID:   project.ID,
		AssigneeID:  input.AssigneeID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// UpdateTaskStatus moves a task to status on behalf of its assignee.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor policy.Principal, projectID, taskID uint64, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.findTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if !policy.Can(actor, policy.ActionUpdateTaskStatus, policy.Resource{TaskAssigneeID: task.AssigneeID}) {
		return nil, ErrNotTaskAssignee
	}

	if err := s.taskRepo.UpdateStatus(ctx, task, status); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	task.Status = status

	return task, nil
}

// DeleteTask hard deletes a task of the project.
func (s *TaskService) DeleteTask(ctx context.Context, actor policy.Principal, projectID, taskID uint64) error {
	project, err := findProject(ctx, s.projectRepo, projectID)
	if err != nil {
		return err
	}

	isMember, err := s.projectRepo.IsMember(ctx, project.ID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	if !policy.Can(actor, policy.ActionDeleteTask, policy.Resource{
		ProjectCreatedBy: project.CreatedBy,
		IsMember:         isMember,
	}) {
		return ErrCannotDeleteTask
	}

	task, err := s.findTask(ctx, project.ID, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// ListTasks returns one page of a project's tasks and the total count.
// Only members may list; others get ErrProjectNotFound.
func (s *TaskService) ListTasks(ctx context.Context, actor policy.Principal, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	project, err := findMemberProject(ctx, s.projectRepo, actor, input.ProjectID)
	if err != nil {
		return nil, 0, err
	}

	pageSize := input.PageSize
	if pageSize == 0 {
		pageSize = constants.DefaultPageSize
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		ProjectID: project.ID,
		Status:    input.Status,
		Page:      input.Page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

func (s *TaskService) findTask(ctx context.Context, projectID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindInProject(ctx, projectID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
