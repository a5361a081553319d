package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/model"
	"github.com/taskforge/backend/internal/service"
)

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*model.User{}}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	f.nextID++
	now := time.Now()
	user := &model.User{
		ID:           f.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeTaskRepo struct {
	tasks  []model.Task
	nextID int64
	now    time.Time
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{now: time.Unix(1700000000, 0)}
}

func (f *fakeTaskRepo) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeTaskRepo) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	f.nextID++
	created := *task
	created.ID = f.nextID
	created.CreatedAt = f.tick()
	created.UpdatedAt = created.CreatedAt
	f.tasks = append(f.tasks, created)
	return &created, nil
}

func (f *fakeTaskRepo) ListTasks(ctx context.Context, userID int64, limit, offset int) ([]model.Task, error) {
	var owned []model.Task
	for i := len(f.tasks) - 1; i >= 0; i-- {
		if f.tasks[i].UserID == userID {
			owned = append(owned, f.tasks[i])
		}
	}
	if offset >= len(owned) {
		return []model.Task{}, nil
	}
	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (f *fakeTaskRepo) CountTasks(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for _, t := range f.tasks {
		if t.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaskRepo) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	for _, t := range f.tasks {
		if t.ID == taskID && t.UserID == userID {
			copied := t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTaskRepo) UpdateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	for i, t := range f.tasks {
		if t.ID == task.ID && t.UserID == task.UserID {
			updated := *task
			updated.CreatedAt = t.CreatedAt
			updated.UpdatedAt = f.tick()
			f.tasks[i] = updated
			copied := updated
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTaskRepo) DeleteTask(ctx context.Context, userID, taskID int64) error {
	for i, t := range f.tasks {
		if t.ID == taskID && t.UserID == userID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newTestRouter(t *testing.T, authCfg config.AuthConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := newFakeUserRepo()
	taskRepo := newFakeTaskRepo()

	authSvc, err := service.NewAuthService(userRepo, authCfg)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	taskSvc := service.NewTaskService(taskRepo)

	authHandler := NewAuthHandler(authSvc)
	taskHandler := NewTaskHandler(taskSvc)

	r := gin.New()
	r.Use(RequestIDMiddleware())

	api := r.Group("/api")
	api.POST("/register/", authHandler.Register)
	api.POST("/token/", authHandler.Token)
	api.POST("/token/refresh/", authHandler.Refresh)

	tasks := api.Group("/tasks")
	tasks.Use(AuthMiddleware(authSvc))
	tasks.GET("/", taskHandler.List)
	tasks.POST("/", taskHandler.Create)
	tasks.GET("/:id/", taskHandler.Get)
	tasks.PUT("/:id/", taskHandler.Update)
	tasks.PATCH("/:id/", taskHandler.Patch)
	tasks.DELETE("/:id/", taskHandler.Delete)

	return r
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTAccessTTL:  "60m",
		JWTRefreshTTL: "24h",
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func registerUser(t *testing.T, r *gin.Engine, username, password string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/register/", "", model.RegisterRequest{
		Username:  username,
		Email:     username + "@x.com",
		Password:  password,
		Password2: password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %q: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
}

func loginUser(t *testing.T, r *gin.Engine, username, password string) (access, refresh string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/token/", "", model.TokenRequest{
		Username: username,
		Password: password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %q: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var pair model.TokenPairResponse
	decodeBody(t, w, &pair)
	return pair.Access, pair.Refresh
}
