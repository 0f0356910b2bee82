package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tasuki-ai/tasuki/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, priority, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// CreateTask inserts a new task for the owning user and returns it.
// Tasks always start with completed=false.
func (db *DB) CreateTask(ctx context.Context, params model.CreateTaskParams) (model.Task, error) {
	now := time.Now().UTC()
	task, err := scanTask(db.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, priority, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, false, $4, $5, $6, $6)
		 RETURNING `+taskColumns,
		params.UserID, params.Title, params.Description, params.Priority, params.DueDate, now,
	))
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: create task: %w", err)
	}
	return task, nil
}

// ListTasks returns the user's tasks matching the filter, most recently
// updated first. No matches yields an empty slice, not an error.
func (db *DB) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		query += fmt.Sprintf(" AND completed = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by ID, scoped to the owning user.
func (db *DB) GetTask(ctx context.Context, userID string, taskID int64) (model.Task, error) {
	task, err := scanTask(db.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}
	return task, nil
}

// SetTaskCompleted updates a task's completion status, scoped to the owning
// user, and returns the updated row.
func (db *DB) SetTaskCompleted(ctx context.Context, userID string, taskID int64, completed bool) (model.Task, error) {
	task, err := scanTask(db.pool.QueryRow(ctx,
		`UPDATE tasks SET completed = $1, updated_at = $2
		 WHERE id = $3 AND user_id = $4
		 RETURNING `+taskColumns,
		completed, time.Now().UTC(), taskID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("storage: set task completed: %w", err)
	}
	return task, nil
}

// UpdateTask changes a task's title and/or description, scoped to the owning
// user, and returns the updated row. Nil fields are left untouched.
func (db *DB) UpdateTask(ctx context.Context, userID string, taskID int64, newTitle, newDescription *string) (model.Task, error) {
	task, err := scanTask(db.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = COALESCE($1, title),
		     description = COALESCE($2, description),
		     updated_at = $3
		 WHERE id = $4 AND user_id = $5
		 RETURNING `+taskColumns,
		newTitle, newDescription, time.Now().UTC(), taskID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("storage: update task: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task, scoped to the owning user, and returns the
// deleted row. Deleting a missing or foreign task yields ErrTaskNotFound.
func (db *DB) DeleteTask(ctx context.Context, userID string, taskID int64) (model.Task, error) {
	task, err := scanTask(db.pool.QueryRow(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2
		 RETURNING `+taskColumns,
		taskID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, ErrTaskNotFound
		}
		return model.Task{}, fmt.Errorf("storage: delete task: %w", err)
	}
	return task, nil
}
