package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	auth     *AuthService
	projects *ProjectService
	tasks    *TaskService
}

func (s *ServiceTestSuite) SetupTest() {
	var err error
	s.ctx = context.Background()

	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(s.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	))

	userRepo := repository.NewUserRepository(s.db)
	projectRepo := repository.NewProjectRepository(s.db)
	taskRepo := repository.NewTaskRepository(s.db)

	s.auth = NewAuthServiceWithCost(userRepo, bcrypt.MinCost)
	s.projects = NewProjectService(projectRepo, userRepo)
	s.tasks = NewTaskService(taskRepo, projectRepo)
}

func (s *ServiceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *ServiceTestSuite) register(name, email string, role models.Role) policy.Principal {
	user, err := s.auth.Register(s.ctx, RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	s.Require().NoError(err)
	return policy.Principal{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
}

func (s *ServiceTestSuite) project(owner policy.Principal, members ...policy.Principal) *models.Project {
	project, err := s.projects.CreateProject(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)
	for _, m := range members {
		s.Require().NoError(s.projects.AddMember(s.ctx, owner, project.ID, m.ID))
	}
	return project
}

func (s *ServiceTestSuite) TestRegister_Validation() {
	tests := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"malformed email", RegisterInput{Name: "Alice", Email: "not-an-email", Password: "password123", Role: models.RoleManager}, ErrInvalidEmail},
		{"short password", RegisterInput{Name: "Alice", Email: "a@x.com", Password: "short", Role: models.RoleManager}, ErrPasswordTooShort},
		{"unknown role", RegisterInput{Name: "Alice", Email: "a@x.com", Password: "password123", Role: "admin"}, ErrInvalidRole},
		{"short name", RegisterInput{Name: " A ", Email: "a@x.com", Password: "password123", Role: models.RoleManager}, ErrNameTooShort},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.auth.Register(s.ctx, tt.input)
			s.ErrorIs(err, tt.want)
			s.ErrorIs(err, apierrors.ErrValidation)
		})
	}

	var count int64
	s.db.Model(&models.User{}).Count(&count)
	s.Zero(count)
}

func (s *ServiceTestSuite) TestRegister_NormalizesAndHashes() {
	user, err := s.auth.Register(s.ctx, RegisterInput{
		Name:     "  Alice ",
		Email:    " Alice@X.com ",
		Password: "password123",
		Role:     models.RoleManager,
	})
	s.Require().NoError(err)

	s.Equal("Alice", user.Name)
	s.Equal("alice@x.com", user.Email)
	s.NotEqual("password123", user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func (s *ServiceTestSuite) TestRegister_DuplicateEmail() {
	s.register("Alice", "alice@x.com", models.RoleManager)

	_, err := s.auth.Register(s.ctx, RegisterInput{
		Name:     "Other",
		Email:    "ALICE@x.com",
		Password: "password456",
		Role:     models.RoleDeveloper,
	})
	s.ErrorIs(err, ErrEmailTaken)
	s.ErrorIs(err, apierrors.ErrConflict)
}

func (s *ServiceTestSuite) TestVerify() {
	s.register("Alice", "alice@x.com", models.RoleManager)

	user, ok, err := s.auth.Verify(s.ctx, "alice@x.com", "password123")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("alice@x.com", user.Email)

	wrongUser, wrongOK, wrongErr := s.auth.Verify(s.ctx, "alice@x.com", "wrong-password")
	unknownUser, unknownOK, unknownErr := s.auth.Verify(s.ctx, "nobody@x.com", "password123")

	s.NoError(wrongErr)
	s.NoError(unknownErr)
	s.False(wrongOK)
	s.False(unknownOK)
	s.Nil(wrongUser)
	s.Nil(unknownUser)
}

func (s *ServiceTestSuite) TestGetUser_NotFound() {
	_, err := s.auth.GetUser(s.ctx, 42)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestCreateProject() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	lead := s.register("Lena", "lena@x.com", models.RoleTeamLead)
	dev := s.register("Dave", "dave@x.com", models.RoleDeveloper)

	desc := "  moon  "
	project, err := s.projects.CreateProject(s.ctx, alice, CreateProjectInput{Name: " Apollo ", Description: &desc})
	s.Require().NoError(err)
	s.Equal("Apollo", project.Name)
	s.Require().NotNil(project.Description)
	s.Equal("moon", *project.Description)
	s.Equal(alice.ID, project.CreatedBy)

	_, members, err := s.projects.GetProjectWithMembers(s.ctx, alice, project.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal(alice.ID, members[0].UserID)

	_, err = s.projects.CreateProject(s.ctx, lead, CreateProjectInput{Name: "Gemini"})
	s.NoError(err)

	_, err = s.projects.CreateProject(s.ctx, dev, CreateProjectInput{Name: "Mercury"})
	s.ErrorIs(err, ErrCannotCreateProject)

	_, err = s.projects.CreateProject(s.ctx, alice, CreateProjectInput{Name: "   "})
	s.ErrorIs(err, ErrProjectNameRequired)
}

func (s *ServiceTestSuite) TestAddMember() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	carol := s.register("Carol", "carol@x.com", models.RoleTeamLead)
	project := s.project(alice)

	s.NoError(s.projects.AddMember(s.ctx, alice, project.ID, bob.ID))

	s.Run("duplicate member", func() {
		err := s.projects.AddMember(s.ctx, alice, project.ID, bob.ID)
		s.ErrorIs(err, ErrAlreadyProjectMember)
	})

	s.Run("actor not a member", func() {
		err := s.projects.AddMember(s.ctx, carol, project.ID, carol.ID)
		s.ErrorIs(err, ErrCannotAddMember)
	})

	s.Run("developer member", func() {
		err := s.projects.AddMember(s.ctx, bob, project.ID, carol.ID)
		s.ErrorIs(err, ErrCannotAddMember)
	})

	s.Run("unknown user", func() {
		err := s.projects.AddMember(s.ctx, alice, project.ID, 9999)
		s.ErrorIs(err, ErrMemberUserNotFound)
	})

	s.Run("unknown project", func() {
		err := s.projects.AddMember(s.ctx, alice, 9999, carol.ID)
		s.ErrorIs(err, ErrProjectNotFound)
	})

	s.Run("missing member id", func() {
		err := s.projects.AddMember(s.ctx, alice, project.ID, 0)
		s.ErrorIs(err, ErrMemberIDRequired)
	})
}

func (s *ServiceTestSuite) TestDeleteProject_Cascade() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	project := s.project(alice, bob)

	_, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "Design", AssigneeID: &bob.ID})
	s.Require().NoError(err)

	err = s.projects.DeleteProject(s.ctx, bob, project.ID)
	s.ErrorIs(err, ErrNotProjectCreator)

	s.Require().NoError(s.projects.DeleteProject(s.ctx, alice, project.ID))

	var members, tasks, projects int64
	s.db.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&members)
	s.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&tasks)
	s.db.Model(&models.Project{}).Count(&projects)
	s.Zero(members)
	s.Zero(tasks)
	s.Zero(projects)

	err = s.projects.DeleteProject(s.ctx, alice, project.ID)
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *ServiceTestSuite) TestListProjectsForUser() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	s.project(alice, bob)
	s.project(alice)

	aliceProjects, err := s.projects.ListProjectsForUser(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(aliceProjects, 2)

	bobProjects, err := s.projects.ListProjectsForUser(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Len(bobProjects, 1)
}

func (s *ServiceTestSuite) TestGetProjectWithMembers_NonMember() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	eve := s.register("Eve", "eve@x.com", models.RoleManager)
	project := s.project(alice)

	_, _, err := s.projects.GetProjectWithMembers(s.ctx, eve, project.ID)
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *ServiceTestSuite) TestCreateTask() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	lead := s.register("Lena", "lena@x.com", models.RoleTeamLead)
	outsider := s.register("Olga", "olga@x.com", models.RoleDeveloper)
	project := s.project(alice, bob, lead)

	task, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: " Design ", AssigneeID: &bob.ID})
	s.Require().NoError(err)
	s.Equal("Design", task.Title)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Require().NotNil(task.AssigneeID)
	s.Equal(bob.ID, *task.AssigneeID)

	unassigned, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "Backlog"})
	s.Require().NoError(err)
	s.Nil(unassigned.AssigneeID)

	s.Run("assignee not a member", func() {
		_, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "Nope", AssigneeID: &outsider.ID})
		s.ErrorIs(err, ErrAssigneeNotMember)
		s.ErrorIs(err, apierrors.ErrValidation)
	})

	s.Run("team lead member", func() {
		_, err := s.tasks.CreateTask(s.ctx, lead, CreateTaskInput{ProjectID: project.ID, Title: "Nope", AssigneeID: &bob.ID})
		s.ErrorIs(err, ErrCannotCreateTask)
	})

	s.Run("missing title", func() {
		_, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "  "})
		s.ErrorIs(err, ErrTitleRequired)
	})

	s.Run("unknown project", func() {
		_, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: 9999, Title: "Nope"})
		s.ErrorIs(err, ErrProjectNotFound)
	})

	var count int64
	s.db.Model(&models.Task{}).Count(&count)
	s.Equal(int64(2), count)
}

func (s *ServiceTestSuite) TestCreateTask_ManagerNotMember() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	mallory := s.register("Mallory", "mallory@x.com", models.RoleManager)
	project := s.project(alice)

	_, err := s.tasks.CreateTask(s.ctx, mallory, CreateTaskInput{ProjectID: project.ID, Title: "Nope"})
	s.ErrorIs(err, ErrCannotCreateTask)
}

func (s *ServiceTestSuite) TestUpdateTaskStatus() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	project := s.project(alice, bob)

	task, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "Design", AssigneeID: &bob.ID})
	s.Require().NoError(err)

	updated, err := s.tasks.UpdateTaskStatus(s.ctx, bob, project.ID, task.ID, models.TaskStatusInProgress)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)

	_, err = s.tasks.UpdateTaskStatus(s.ctx, alice, project.ID, task.ID, models.TaskStatusDone)
	s.ErrorIs(err, ErrNotTaskAssignee)

	_, err = s.tasks.UpdateTaskStatus(s.ctx, bob, project.ID, task.ID, "blocked")
	s.ErrorIs(err, ErrInvalidStatus)

	_, err = s.tasks.UpdateTaskStatus(s.ctx, bob, project.ID+1, task.ID, models.TaskStatusDone)
	s.ErrorIs(err, ErrTaskNotFound)

	var stored models.Task
	s.Require().NoError(s.db.First(&stored, task.ID).Error)
	s.Equal(models.TaskStatusInProgress, stored.Status)
}

func (s *ServiceTestSuite) TestDeleteTask() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	mallory := s.register("Mallory", "mallory@x.com", models.RoleManager)
	project := s.project(alice, bob)

	task, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: "Design", AssigneeID: &bob.ID})
	s.Require().NoError(err)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, bob, project.ID, task.ID), ErrCannotDeleteTask)
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, mallory, project.ID, task.ID), ErrCannotDeleteTask)
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, alice, 9999, task.ID), ErrProjectNotFound)
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, alice, project.ID, 9999), ErrTaskNotFound)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, alice, project.ID, task.ID))

	err = s.db.First(&models.Task{}, task.ID).Error
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *ServiceTestSuite) TestListTasks() {
	alice := s.register("Alice", "alice@x.com", models.RoleManager)
	bob := s.register("Bob", "bob@x.com", models.RoleDeveloper)
	eve := s.register("Eve", "eve@x.com", models.RoleDeveloper)
	project := s.project(alice, bob)

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.tasks.CreateTask(s.ctx, alice, CreateTaskInput{ProjectID: project.ID, Title: title, AssigneeID: &bob.ID})
		s.Require().NoError(err)
	}
	tasks, total, err := s.tasks.ListTasks(s.ctx, bob, ListTasksInput{ProjectID: project.ID, Page: 1, PageSize: 2})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(tasks, 2)
	s.Require().NotNil(tasks[0].Assignee)
	s.Equal(bob.ID, tasks[0].Assignee.ID)

	_, err = s.tasks.UpdateTaskStatus(s.ctx, bob, project.ID, tasks[0].ID, models.TaskStatusDone)
	s.Require().NoError(err)

	done := models.TaskStatusDone
	tasks, total, err = s.tasks.ListTasks(s.ctx, alice, ListTasksInput{ProjectID: project.ID, Status: &done, Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(tasks, 1)

	_, _, err = s.tasks.ListTasks(s.ctx, eve, ListTasksInput{ProjectID: project.ID, Page: 1})
	s.ErrorIs(err, ErrProjectNotFound)

	invalid := models.TaskStatus("blocked")
	_, _, err = s.tasks.ListTasks(s.ctx, alice, ListTasksInput{ProjectID: project.ID, Status: &invalid})
	s.ErrorIs(err, ErrInvalidStatus)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
