package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask creates a task in the project named by the :id parameter.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "id")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	type CreateTaskRequest struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		AssigneeID  *uint64 `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), principal, services.CreateTaskInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created",
		"task":    dto.ToTaskDTO(*task),
	})
}

// UpdateStatus changes the status of a task; only its assignee may do so.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "projectId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	taskID, err := utils.ParamID(c, "taskId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), principal, projectID, taskID, models.TaskStatus(req.Status))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task status updated",
		"task":    dto.ToTaskDTO(*task),
	})
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "projectId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	taskID, err := utils.ParamID(c, "taskId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), principal, projectID, taskID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ListTasks returns a page of the project's tasks, optionally filtered by
// status.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	projectID, err := utils.ParamID(c, "projectId")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		ProjectID: projectID,
		Page:      params.Page,
		PageSize:  params.Limit,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), principal, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}
