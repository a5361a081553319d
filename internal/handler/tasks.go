package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskforge/backend/internal/model"
	"github.com/taskforge/backend/internal/service"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List godoc
// @Summary List the caller's tasks
// @Description Newest first, 10 per page.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Success 200 {object} model.TaskListResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/tasks/ [get]
func (h *TaskHandler) List(c *gin.Context) {
	user := GetAuthUser(c)

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Invalid page."})
			return
		}
		page = parsed
	}

	result, err := h.svc.List(c.Request.Context(), user.ID, page)
	if err != nil {
		writeTaskError(c, err)
		return
	}

	results := make([]model.TaskResponse, 0, len(result.Tasks))
	for i := range result.Tasks {
		results = append(results, model.NewTaskResponse(&result.Tasks[i]))
	}

	resp := model.TaskListResponse{
		Count:   result.Count,
		Results: results,
	}
	if result.HasNext {
		next := pageLink(c.Request.URL.Path, result.Page+1)
		resp.Next = &next
	}
	if result.HasPrevious {
		previous := pageLink(c.Request.URL.Path, result.Page-1)
		resp.Previous = &previous
	}

	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a task
// @Description The owner is always the authenticated user; any client-supplied owner is ignored.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.TaskWriteRequest true "Task fields"
// @Success 201 {object} model.TaskResponse
// @Failure 400 {object} map[string][]string
// @Failure 401 {object} model.ErrorResponse
// @Router /api/tasks/ [post]
func (h *TaskHandler) Create(c *gin.Context) {
	user := GetAuthUser(c)

	var req model.TaskWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "invalid request body"})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewTaskResponse(task))
}

// Get godoc
// @Summary Retrieve a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} model.TaskResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/tasks/{id}/ [get]
func (h *TaskHandler) Get(c *gin.Context) {
	user := GetAuthUser(c)

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.svc.Get(c.Request.Context(), user.ID, taskID)
	if err != nil {
		writeTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewTaskResponse(task))
}

// Update godoc
// @Summary Replace a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body model.TaskWriteRequest true "Task fields"
// @Success 200 {object} model.TaskResponse
// @Failure 400 {object} map[string][]string
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/tasks/{id}/ [put]
func (h *TaskHandler) Update(c *gin.Context) {
	h.update(c, false)
}

// Patch godoc
// @Summary Partially update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body model.TaskWriteRequest true "Fields to change"
// @Success 200 {object} model.TaskResponse
// @Failure 400 {object} map[string][]string
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/tasks/{id}/ [patch]
func (h *TaskHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *TaskHandler) update(c *gin.Context, partial bool) {
	user := GetAuthUser(c)

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req model.TaskWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "invalid request body"})
		return
	}

	task, err := h.svc.Update(c.Request.Context(), user.ID, taskID, req, partial)
	if err != nil {
		writeTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewTaskResponse(task))
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 204
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/tasks/{id}/ [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	user := GetAuthUser(c)

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), user.ID, taskID); err != nil {
		writeTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// taskIDParam parses the id path segment. A non-numeric id behaves like
// an absent task, the same 404 a foreign id produces.
func taskIDParam(c *gin.Context) (int64, bool) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Not found."})
		return 0, false
	}
	return taskID, true
}

func pageLink(path string, page int) string {
	return fmt.Sprintf("%s?page=%d", path, page)
}

func writeTaskError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	switch err {
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Not found."})
	case service.ErrInvalidPage:
		c.JSON(http.StatusNotFound, model.ErrorResponse{Detail: "Invalid page."})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Detail: "server error"})
	}
}
