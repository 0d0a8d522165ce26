package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/identity"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	))

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthServiceWithCost(userRepo, bcrypt.MinCost)
	options := sessions.Options{Path: "/", MaxAge: int(time.Hour.Seconds()), HttpOnly: true}
	store := memstore.NewStore([]byte("secret"))
	store.Options(options)
	provider := identity.NewProvider(authService, store, options)

	registry := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(registry)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Logger:       zap.NewNop(),
		SessionStore: store,
		Provider:     provider,
		Auth:         NewAuthHandler(authService, provider),
		Projects:     NewProjectHandler(services.NewProjectService(projectRepo, userRepo)),
		Tasks:        NewTaskHandler(services.NewTaskService(taskRepo, projectRepo)),
		Metrics:      metrics,
		Gatherer:     registry,
	})

	return &testEnv{t: t, db: db, router: router}
}

// client is a user agent holding the session cookie between requests.
type client struct {
	env    *testEnv
	cookie *http.Cookie
}

func (e *testEnv) anonymous() *client {
	return &client{env: e}
}

type response struct {
	Code int
	Body map[string]any
	Raw  string
}

func (c *client) do(method, url string, payload any) response {
	t := c.env.t
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, ok := payload.(string)
		if !ok {
			encoded, err := json.Marshal(payload)
			require.NoError(t, err)
			raw = string(encoded)
		}
		body = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == constants.SessionCookieName {
			c.cookie = ck
		}
	}

	res := response{Code: w.Code, Raw: w.Body.String()}
	_ = json.Unmarshal(w.Body.Bytes(), &res.Body)
	return res
}

func (e *testEnv) register(name, email string, role models.Role) uint64 {
	e.t.Helper()
	res := e.anonymous().do(http.MethodPost, "/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
		"role":     string(role),
	})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Raw)
	return id(res.Body["user"])
}

// login signs an existing user in and returns a client carrying the session.
func (e *testEnv) login(email string) *client {
	e.t.Helper()
	c := e.anonymous()
	res := c.do(http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(e.t, http.StatusOK, res.Code, res.Raw)
	require.NotNil(e.t, c.cookie)
	return c
}

func (e *testEnv) user(name, email string, role models.Role) (uint64, *client) {
	e.t.Helper()
	userID := e.register(name, email, role)
	return userID, e.login(email)
}

func (c *client) createProject(name string) uint64 {
	c.env.t.Helper()
	res := c.do(http.MethodPost, "/addProjects", map[string]string{"name": name})
	require.Equal(c.env.t, http.StatusCreated, res.Code, res.Raw)
	return id(res.Body["project"])
}

func (c *client) addMember(projectID, memberID uint64) response {
	return c.do(http.MethodPost, path("/project/%d/addMember", projectID), map[string]uint64{"member_id": memberID})
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// id extracts the "id" field of a decoded JSON object.
func id(v any) uint64 {
	obj, _ := v.(map[string]any)
	f, _ := obj["id"].(float64)
	return uint64(f)
}
