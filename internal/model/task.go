package model

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDeferred   = "deferred"
	StatusCancelled  = "cancelled"
)

const (
	MaxTitleLength = 255
	DueDateLayout  = "2006-01-02"
)

var taskStatuses = map[string]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusDeferred:   {},
	StatusCancelled:  {},
}

func ValidTaskStatus(status string) bool {
	_, ok := taskStatuses[status]
	return ok
}

// Task is the tasks table row. UserID is immutable after creation.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description *string
	DueDate     *time.Time
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskWriteRequest covers create, replace and partial update. Pointer
// fields distinguish "absent" from "set to zero value" on PATCH.
type TaskWriteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
}

type TaskResponse struct {
	ID          int64     `json:"id"`
	User        int64     `json:"user"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     *string   `json:"due_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewTaskResponse(t *Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		User:        t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(DueDateLayout)
		resp.DueDate = &due
	}
	return resp
}

// TaskListResponse is the page envelope: count of all of the caller's
// tasks plus relative links to the neighbouring pages.
type TaskListResponse struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []TaskResponse `json:"results"`
}
