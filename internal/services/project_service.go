package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNameRequired  = fmt.Errorf("%w: project name is required", apierrors.ErrValidation)
	ErrMemberIDRequired     = fmt.Errorf("%w: member_id is required", apierrors.ErrValidation)
	ErrProjectNotFound      = fmt.Errorf("%w: project not found", apierrors.ErrNotFound)
	ErrMemberUserNotFound   = fmt.Errorf("%w: user to add was not found", apierrors.ErrNotFound)
	ErrAlreadyProjectMember = fmt.Errorf("%w: user is already a member of this project", apierrors.ErrConflict)
	ErrCannotCreateProject  = fmt.Errorf("%w: only managers and team leads can create projects", apierrors.ErrAuthorization)
	ErrCannotAddMember      = fmt.Errorf("%w: only manager or team lead members of the project can add members", apierrors.ErrAuthorization)
	ErrNotProjectCreator    = fmt.Errorf("%w: only the project creator can delete it", apierrors.ErrAuthorization)
)

// ProjectService provides business logic for project operations.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description *string
}

// CreateProject creates a project; the creator becomes its first member.
func (s *ProjectService) CreateProject(ctx context.Context, actor policy.Principal, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	if !policy.Can(actor, policy.ActionCreateProject, policy.Resource{}) {
		return nil, ErrCannotCreateProject
	}

	project := &models.Project{
		Name:        name,
		Description: trimOptional(input.Description),
		CreatedBy:   actor.ID,
	}

	if err := s.projectRepo.CreateWithCreator(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// AddMember adds memberID to the project on behalf of actor.
func (s *ProjectService) AddMember(ctx context.Context, actor policy.Principal, projectID, memberID uint64) error {
	if memberID == 0 {
		return ErrMemberIDRequired
	}

	project, err := findProject(ctx, s.projectRepo, projectID)
	if err != nil {
		return err
	}

	isMember, err := s.projectRepo.IsMember(ctx, project.ID, actor.ID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}

	if !policy.Can(actor, policy.ActionAddMember, policy.Resource{
		ProjectCreatedBy: project.CreatedBy,
		IsMember:         isMember,
	}) {
		return ErrCannotAddMember
	}

	if _, err := s.userRepo.FindByID(ctx, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	alreadyMember, err := s.projectRepo.IsMember(ctx, project.ID, memberID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	if alreadyMember {
		return ErrAlreadyProjectMember
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    memberID,
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		// a concurrent request added the same member first
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyProjectMember
		}
		return fmt.Errorf("failed to add member to project: %w", err)
	}

	return nil
}

// DeleteProject removes a project together with its members and tasks.
func (s *ProjectService) DeleteProject(ctx context.Context, actor policy.Principal, projectID uint64) error {
	project, err := findProject(ctx, s.projectRepo, projectID)
	if err != nil {
		return err
	}

	if !policy.Can(actor, policy.ActionDeleteProject, policy.Resource{ProjectCreatedBy: project.CreatedBy}) {
		return ErrNotProjectCreator
	}

	if err := s.projectRepo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// ListProjectsForUser returns the projects the user belongs to.
func (s *ProjectService) ListProjectsForUser(ctx context.Context, userID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProjectWithMembers returns a project and its members. Non-members get
// ErrProjectNotFound so that project ids cannot be probed.
func (s *ProjectService) GetProjectWithMembers(ctx context.Context, actor policy.Principal, projectID uint64) (*models.Project, []models.ProjectMember, error) {
	project, err := findMemberProject(ctx, s.projectRepo, actor, projectID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.projectRepo.ListMembers(ctx, project.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list project members: %w", err)
	}

	return project, members, nil
}

func findProject(ctx context.Context, projectRepo repository.ProjectRepository, projectID uint64) (*models.Project, error) {
	project, err := projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func findMemberProject(ctx context.Context, projectRepo repository.ProjectRepository, actor policy.Principal, projectID uint64) (*models.Project, error) {
	project, err := findProject(ctx, projectRepo, projectID)
	if err != nil {
		return nil, err
	}

	isMember, err := projectRepo.IsMember(ctx, project.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	if !isMember {
		return nil, ErrProjectNotFound
	}

	return project, nil
}

// trimOptional trims an optional text field, mapping blank values to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
