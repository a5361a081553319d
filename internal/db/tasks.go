package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/taskforge/backend/internal/model"
)

// Every task statement is scoped by user_id so a caller can never reach
// another user's rows, whatever id they ask for.

func (db *Postgres) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	query := `
		INSERT INTO tasks (user_id, title, description, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, user_id, title, description, due_date, status, created_at, updated_at
	`
	var created model.Task
	err := db.Pool.QueryRow(ctx, query,
		task.UserID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Status,
	).Scan(
		&created.ID,
		&created.UserID,
		&created.Title,
		&created.Description,
		&created.DueDate,
		&created.Status,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (db *Postgres) ListTasks(ctx context.Context, userID int64, limit, offset int) ([]model.Task, error) {
	query := `
		SELECT id, user_id, title, description, due_date, status, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.Status,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if list == nil {
		list = []model.Task{}
	}
	return list, nil
}

func (db *Postgres) CountTasks(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (db *Postgres) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	query := `
		SELECT id, user_id, title, description, due_date, status, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`
	var t model.Task
	err := db.Pool.QueryRow(ctx, query, taskID, userID).Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *Postgres) UpdateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, status = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING id, user_id, title, description, due_date, status, created_at, updated_at
	`
	var updated model.Task
	err := db.Pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.DueDate,
		task.Status,
		task.ID,
		task.UserID,
	).Scan(
		&updated.ID,
		&updated.UserID,
		&updated.Title,
		&updated.Description,
		&updated.DueDate,
		&updated.Status,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (db *Postgres) DeleteTask(ctx context.Context, userID, taskID int64) error {
	commandTag, err := db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
