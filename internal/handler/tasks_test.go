package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/model"
)

func createTaskHTTP(t *testing.T, r *gin.Engine, access string, body interface{}) model.TaskResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/tasks/", access, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var task model.TaskResponse
	decodeBody(t, w, &task)
	return task
}

func TestTaskLifecycleScenario(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())

	registerUser(t, r, "alice", "pw123456")
	access, _ := loginUser(t, r, "alice", "pw123456")

	task := createTaskHTTP(t, r, access, map[string]string{"title": "Buy milk"})
	if task.Title != "Buy milk" {
		t.Fatalf("unexpected title: %q", task.Title)
	}
	if task.Status != model.StatusPending {
		t.Fatalf("expected default status pending, got %q", task.Status)
	}
	if task.User == 0 {
		t.Fatal("expected owner to be set server-side")
	}

	w := doJSON(t, r, http.MethodGet, "/api/tasks/", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list model.TaskListResponse
	decodeBody(t, w, &list)
	if list.Count != 1 || len(list.Results) != 1 || list.Results[0].Title != "Buy milk" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// A different registered user sees an empty list and cannot reach
	// alice's task by id: every response is 404, never 403.
	registerUser(t, r, "bob", "pw123456")
	bobAccess, _ := loginUser(t, r, "bob", "pw123456")

	w = doJSON(t, r, http.MethodGet, "/api/tasks/", bobAccess, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("bob list: expected 200, got %d", w.Code)
	}
	var bobList model.TaskListResponse
	decodeBody(t, w, &bobList)
	if bobList.Count != 0 || len(bobList.Results) != 0 {
		t.Fatalf("expected empty list for bob, got %+v", bobList)
	}

	taskPath := fmt.Sprintf("/api/tasks/%d/", task.ID)
	for _, tc := range []struct {
		method string
		body   interface{}
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]string{"title": "stolen"}},
		{http.MethodPatch, map[string]string{"title": "stolen"}},
		{http.MethodDelete, nil},
	} {
		w := doJSON(t, r, tc.method, taskPath, bobAccess, tc.body)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s as bob: expected 404, got %d: %s", tc.method, w.Code, w.Body.String())
		}
	}

	// Alice still owns it.
	w = doJSON(t, r, http.MethodGet, taskPath, access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("alice get: expected 200, got %d", w.Code)
	}
}

func TestTasksRequireAuth(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/tasks/"},
		{http.MethodPost, "/api/tasks/"},
		{http.MethodGet, "/api/tasks/1/"},
		{http.MethodPut, "/api/tasks/1/"},
		{http.MethodPatch, "/api/tasks/1/"},
		{http.MethodDelete, "/api/tasks/1/"},
	}

	for _, tc := range paths {
		w := doJSON(t, r, tc.method, tc.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: expected 401, got %d", tc.method, tc.path, w.Code)
		}

		w = doJSON(t, r, tc.method, tc.path, "garbage-token", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with garbage token: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestExpiredTokenRejectedOnEveryEndpoint(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTAccessTTL = "-1m"
	r := newTestRouter(t, cfg)

	registerUser(t, r, "alice", "pw123456")
	expired, _ := loginUser(t, r, "alice", "pw123456")

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/tasks/"},
		{http.MethodPost, "/api/tasks/"},
		{http.MethodGet, "/api/tasks/1/"},
		{http.MethodDelete, "/api/tasks/1/"},
	} {
		w := doJSON(t, r, tc.method, tc.path, expired, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with expired token: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestBearerHeaderRequired(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())
	registerUser(t, r, "alice", "pw123456")
	access, _ := loginUser(t, r, "alice", "pw123456")

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/", nil)
	req.Header.Set("Authorization", access) // missing "Bearer " prefix
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer header, got %d", w.Code)
	}
}

func TestListPaginationEnvelope(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())
	registerUser(t, r, "alice", "pw123456")
	access, _ := loginUser(t, r, "alice", "pw123456")

	for i := 1; i <= 15; i++ {
		createTaskHTTP(t, r, access, map[string]string{"title": fmt.Sprintf("task %d", i)})
	}

	w := doJSON(t, r, http.MethodGet, "/api/tasks/", access, nil)
	var first model.TaskListResponse
	decodeBody(t, w, &first)
	if first.Count != 15 || len(first.Results) != 10 {
		t.Fatalf("page 1: count=%d len=%d", first.Count, len(first.Results))
	}
	if first.Results[0].Title != "task 15" {
		t.Fatalf("expected newest first, got %q", first.Results[0].Title)
	}
	if first.Next == nil || first.Previous != nil {
		t.Fatalf("page 1 links: next=%v previous=%v", first.Next, first.Previous)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks/?page=2", access, nil)
	var second model.TaskListResponse
	decodeBody(t, w, &second)
	if len(second.Results) != 5 {
		t.Fatalf("page 2: len=%d", len(second.Results))
	}
	if second.Next != nil || second.Previous == nil {
		t.Fatalf("page 2 links: next=%v previous=%v", second.Next, second.Previous)
	}

	for _, page := range []string{"3", "0", "abc"} {
		w = doJSON(t, r, http.MethodGet, "/api/tasks/?page="+page, access, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("page=%s: expected 404, got %d", page, w.Code)
		}
	}
}

func TestCreateTaskValidationEndpoint(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())
	registerUser(t, r, "alice", "pw123456")
	access, _ := loginUser(t, r, "alice", "pw123456")

	w := doJSON(t, r, http.MethodPost, "/api/tasks/", access, map[string]string{"title": "x", "status": "done"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var fields map[string][]string
	decodeBody(t, w, &fields)
	if len(fields["status"]) == 0 {
		t.Fatalf("expected field error on status, got %v", fields)
	}
}

func TestUpdateAndPatchEndpoints(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())
	registerUser(t, r, "alice", "pw123456")
	access, _ := loginUser(t, r, "alice", "pw123456")

	task := createTaskHTTP(t, r, access, map[string]string{
		"title":       "Buy milk",
		"description": "two liters",
		"due_date":    "2026-09-01",
	})
	path := fmt.Sprintf("/api/tasks/%d/", task.ID)

	w := doJSON(t, r, http.MethodPatch, path, access, map[string]string{"status": model.StatusCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var patched model.TaskResponse
	decodeBody(t, w, &patched)
	if patched.Status != model.StatusCompleted || patched.Title != "Buy milk" || patched.Description == nil {
		t.Fatalf("unexpected patched task: %+v", patched)
	}

	w = doJSON(t, r, http.MethodPut, path, access, map[string]string{"title": "Buy oat milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var replaced model.TaskResponse
	decodeBody(t, w, &replaced)
	if replaced.Title != "Buy oat milk" || replaced.Status != model.StatusPending || replaced.Description != nil || replaced.DueDate != nil {
		t.Fatalf("unexpected replaced task: %+v", replaced)
	}

	w = doJSON(t, r, http.MethodDelete, path, access, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, path, access, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}
}

// No serialized response anywhere in the API may carry a password or
// its hash.
func TestPasswordNeverSerialized(t *testing.T) {
	r := newTestRouter(t, testAuthConfig())

	register := doJSON(t, r, http.MethodPost, "/api/register/", "", model.RegisterRequest{
		Username:  "alice",
		Email:     "alice@x.com",
		Password:  "pw123456",
		Password2: "pw123456",
	})
	login := doJSON(t, r, http.MethodPost, "/api/token/", "", model.TokenRequest{
		Username: "alice",
		Password: "pw123456",
	})

	for name, body := range map[string]string{
		"register": register.Body.String(),
		"login":    login.Body.String(),
	} {
		if strings.Contains(body, "password") || strings.Contains(body, "pw123456") {
			t.Fatalf("%s response leaks password material: %s", name, body)
		}
	}
}
