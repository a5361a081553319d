package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskforge/backend/internal/db"
	"github.com/taskforge/backend/internal/model"
)

// PageSize is the fixed number of tasks per list page.
const PageSize = 10

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPage = errors.New("invalid page")
)

type TaskRepo interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	ListTasks(ctx context.Context, userID int64, limit, offset int) ([]model.Task, error)
	CountTasks(ctx context.Context, userID int64) (int64, error)
	GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
}

type TaskService struct {
	repo TaskRepo
}

func NewTaskService(repo TaskRepo) *TaskService {
	return &TaskService{repo: repo}
}

// TaskPage is one page of a user's tasks, newest first.
type TaskPage struct {
	Count       int64
	Page        int
	Tasks       []model.Task
	HasNext     bool
	HasPrevious bool
}

// Create stores a new task owned by userID. Any client-supplied owner
// never reaches this layer; the handler passes the authenticated
// identity only.
func (s *TaskService) Create(ctx context.Context, userID int64, req model.TaskWriteRequest) (*model.Task, error) {
	task := &model.Task{
		UserID: userID,
		Status: model.StatusPending,
	}
	if err := applyWrite(task, req, false); err != nil {
		return nil, err
	}
	return s.repo.CreateTask(ctx, task)
}

func (s *TaskService) List(ctx context.Context, userID int64, page int) (*TaskPage, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}

	count, err := s.repo.CountTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastPage := int((count + PageSize - 1) / PageSize)
	if lastPage == 0 {
		lastPage = 1
	}
	if page > lastPage {
		return nil, ErrInvalidPage
	}

	tasks, err := s.repo.ListTasks(ctx, userID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}

	return &TaskPage{
		Count:       count,
		Page:        page,
		Tasks:       tasks,
		HasNext:     page < lastPage,
		HasPrevious: page > 1,
	}, nil
}

// Get returns the task only when it is owned by userID; anything else
// is ErrNotFound, so callers cannot learn whether a foreign id exists.
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// Update replaces (partial=false) or patches (partial=true) a task the
// caller owns. The owner field is immutable.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, req model.TaskWriteRequest, partial bool) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := applyWrite(task, req, partial); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTask(ctx, task)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	err := s.repo.DeleteTask(ctx, userID, taskID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// applyWrite validates req and applies it to task. With partial set,
// absent fields keep their current values; a full write resets optional
// fields to their defaults.
func applyWrite(task *model.Task, req model.TaskWriteRequest, partial bool) error {
	verr := &ValidationError{}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			verr.add("title", "This field may not be blank.")
		} else if len(title) > model.MaxTitleLength {
			verr.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", model.MaxTitleLength))
		} else {
			task.Title = title
		}
	} else if !partial {
		verr.add("title", "This field is required.")
	}

	if req.Description != nil {
		task.Description = req.Description
	} else if !partial {
		task.Description = nil
	}

	if req.DueDate != nil {
		due, err := time.Parse(model.DueDateLayout, *req.DueDate)
		if err != nil {
			verr.add("due_date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
		} else {
			task.DueDate = &due
		}
	} else if !partial {
		task.DueDate = nil
	}

	if req.Status != nil {
		if !model.ValidTaskStatus(*req.Status) {
			verr.add("status", fmt.Sprintf("%q is not a valid choice.", *req.Status))
		} else {
			task.Status = *req.Status
		}
	} else if !partial {
		task.Status = model.StatusPending
	}

	return verr.orNil()
}
