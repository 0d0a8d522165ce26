package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/identity"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Logger       *zap.Logger
	SessionStore sessions.Store
	Provider     *identity.Provider

	Auth     *AuthHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler

	// Metrics and Gatherer are optional; /metrics is served when both are set.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(cfg.Logger),
		middleware.Recovery(cfg.Logger),
	)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})
	if cfg.Metrics != nil && cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app := r.Group("/")
	app.Use(sessions.Sessions(constants.SessionCookieName, cfg.SessionStore))
	{
		app.POST("/register", cfg.Auth.Register)
		app.POST("/login", cfg.Auth.Login)

		authed := app.Group("/")
		authed.Use(middleware.RequireAuth(cfg.Provider))
		{
			authed.POST("/logout", cfg.Auth.Logout)
			authed.GET("/me", cfg.Auth.Me)

			authed.GET("/projects", cfg.Projects.ListProjects)
			authed.POST("/addProjects", cfg.Projects.CreateProject)
			authed.GET("/project/:id", cfg.Projects.GetProject)
			authed.DELETE("/project/:id", cfg.Projects.DeleteProject)
			authed.POST("/project/:id/addMember", cfg.Projects.AddMember)
			authed.POST("/project/:id/createTasks", cfg.Tasks.CreateTask)

			authed.GET("/projects/:projectId/tasks", cfg.Tasks.ListTasks)
			authed.PATCH("/projects/:projectId/tasks/:taskId/status", cfg.Tasks.UpdateStatus)
			authed.DELETE("/projects/:projectId/tasks/:taskId", cfg.Tasks.DeleteTask)
		}
	}

	return r
}
