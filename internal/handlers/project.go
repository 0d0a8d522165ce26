package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// ProjectHandler serves project and membership routes.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a project owned by the current user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), principal, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Project created",
		"project": dto.ToProjectDTO(*project),
	})
}

// AddMember adds a user to the project.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "id")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	// member_id may be a number or a numeric string.
	type AddMemberRequest struct {
		MemberID json.Number `json:"member_id"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	memberID, err := utils.ParseID(req.MemberID.String())
	if err != nil {
		apierrors.BadRequest(c, "member_id must be a positive integer")
		return
	}

	if err := h.projectService.AddMember(c.Request.Context(), principal, projectID, memberID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Member added successfully",
		"project_id": projectID,
	})
}

// DeleteProject deletes a project with its members and tasks.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "id")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), principal, projectID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Project deleted successfully",
		"project_id": projectID,
	})
}

// ListProjects returns the projects the current user belongs to.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjectsForUser(c.Request.Context(), principal.ID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToProjectDTOs(projects),
	})
}

// GetProject returns a project and its members.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "id")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	project, members, err := h.projectService.GetProjectWithMembers(c.Request.Context(), principal, projectID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": dto.ToProjectDTO(*project),
		"members": dto.ToProjectMemberDTOs(members),
	})
}
