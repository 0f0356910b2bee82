// Package tools implements the task operations behind the agent.
//
// Every operation takes the owning user's ID explicitly and returns a
// uniform Envelope instead of a Go error: success carries data, failure
// carries a stable error code plus a human-readable message. Errors never
// cross the tool boundary as Go errors, so a tool failure can always be
// rendered to the user.
package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// Stable error codes carried in failure envelopes.
const (
	CodeInvalidUserID   = "INVALID_USER_ID"
	CodeTaskNotFound    = "TASK_NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeUnknownIntent   = "UNKNOWN_INTENT"
)

// Envelope is the uniform result of every tool invocation.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Ok wraps data in a success envelope.
func Ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail builds a failure envelope with a stable code.
func Fail(code, message string) Envelope {
	return Envelope{Success: false, Error: message, ErrorCode: code}
}

// TaskStore is the persistence surface the tools need. *storage.DB
// satisfies it; tests substitute an in-memory fake.
type TaskStore interface {
	CreateTask(ctx context.Context, params model.CreateTaskParams) (model.Task, error)
	ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error)
	GetTask(ctx context.Context, userID string, taskID int64) (model.Task, error)
	SetTaskCompleted(ctx context.Context, userID string, taskID int64, completed bool) (model.Task, error)
	UpdateTask(ctx context.Context, userID string, taskID int64, newTitle, newDescription *string) (model.Task, error)
	DeleteTask(ctx context.Context, userID string, taskID int64) (model.Task, error)
}

// Tools executes task operations against a store.
type Tools struct {
	store  TaskStore
	logger *slog.Logger
}

// New creates the tool set.
func New(store TaskStore, logger *slog.Logger) *Tools {
	return &Tools{store: store, logger: logger}
}

// AddTaskInput are the fields accepted by AddTask.
type AddTaskInput struct {
	Title       string
	Description *string
	Priority    *model.Priority
	DueDate     *time.Time
}

// ListTasksInput narrows the listing. Zero value lists everything.
type ListTasksInput struct {
	Completed *bool
	Priority  *model.Priority
}

// CompleteTaskInput toggles a task's completion state.
type CompleteTaskInput struct {
	TaskID    int64
	Completed bool
}

// UpdateTaskInput mutates a task's title and/or description. Nil fields are
// left unchanged; at least one must be set.
type UpdateTaskInput struct {
	TaskID         int64
	NewTitle       *string
	NewDescription *string
}

// UpdateResult pairs the updated task with the title it had before, which
// the response formatter needs.
type UpdateResult struct {
	Task     model.Task `json:"task"`
	OldTitle string     `json:"old_title"`
}

func validUserID(userID string) bool {
	return strings.TrimSpace(userID) != ""
}

// AddTask creates a task for the user.
func (t *Tools) AddTask(ctx context.Context, userID string, in AddTaskInput) Envelope {
	if !validUserID(userID) {
		return Fail(CodeInvalidUserID, "user_id is required")
	}
	if err := model.ValidateTitle(in.Title); err != nil {
		return Fail(CodeValidationError, err.Error())
	}
	if err := model.ValidateDescription(in.Description); err != nil {
		return Fail(CodeValidationError, err.Error())
	}
	if in.Priority != nil && !model.ValidPriority(*in.Priority) {
		return Fail(CodeValidationError, "priority must be low, medium, or high")
	}

	task, err := t.store.CreateTask(ctx, model.CreateTaskParams{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		t.logger.Error("add task failed", "error", err, "user_id", userID)
		return Fail(CodeDatabaseError, "could not create the task")
	}
	return Ok(task)
}

// ListTasks returns the user's tasks, optionally filtered.
func (t *Tools) ListTasks(ctx context.Context, userID string, in ListTasksInput) Envelope {
	if !validUserID(userID) {
		return Fail(CodeInvalidUserID, "user_id is required")
	}
	if in.Priority != nil && !model.ValidPriority(*in.Priority) {
		return Fail(CodeValidationError, "priority must be low, medium, or high")
	}

	items, err := t.store.ListTasks(ctx, userID, model.TaskFilter{
		Completed: in.Completed,
		Priority:  in.Priority,
	})
	if err != nil {
		t.logger.Error("list tasks failed", "error", err, "user_id", userID)
		return Fail(CodeDatabaseError, "could not list tasks")
	}
	return Ok(items)
}

// CompleteTask sets a task's completion state. The same task not-found
// answer covers both a missing task and another user's task.
func (t *Tools) CompleteTask(ctx context.Context, userID string, in CompleteTaskInput) Envelope {
	if !validUserID(userID) {
		return Fail(CodeInvalidUserID, "user_id is required")
	}
	if in.TaskID <= 0 {
		return Fail(CodeValidationError, "task_id must be positive")
	}

	task, err := t.store.SetTaskCompleted(ctx, userID, in.TaskID, in.Completed)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			return Fail(CodeTaskNotFound, "task not found")
		}
		t.logger.Error("complete task failed", "error", err, "user_id", userID, "task_id", in.TaskID)
		return Fail(CodeDatabaseError, "could not update the task")
	}
	return Ok(task)
}

// UpdateTask changes a task's title and/or description.
func (t *Tools) UpdateTask(ctx context.Context, userID string, in UpdateTaskInput) Envelope {
	if !validUserID(userID) {
		return Fail(CodeInvalidUserID, "user_id is required")
	}
	if in.TaskID <= 0 {
		return Fail(CodeValidationError, "task_id must be positive")
	}
	if in.NewTitle == nil && in.NewDescription == nil {
		return Fail(CodeValidationError, "nothing to update")
	}
	if in.NewTitle != nil {
		if err := model.ValidateTitle(*in.NewTitle); err != nil {
			return Fail(CodeValidationError, err.Error())
		}
	}
	if err := model.ValidateDescription(in.NewDescription); err != nil {
		return Fail(CodeValidationError, err.Error())
	}

	before, err := t.store.GetTask(ctx, userID, in.TaskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			return Fail(CodeTaskNotFound, "task not found")
		}
		t.logger.Error("update task lookup failed", "error", err, "user_id", userID, "task_id", in.TaskID)
		return Fail(CodeDatabaseError, "could not update the task")
	}

	task, err := t.store.UpdateTask(ctx, userID, in.TaskID, in.NewTitle, in.NewDescription)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			return Fail(CodeTaskNotFound, "task not found")
		}
		t.logger.Error("update task failed", "error", err, "user_id", userID, "task_id", in.TaskID)
		return Fail(CodeDatabaseError, "could not update the task")
	}
	return Ok(UpdateResult{Task: task, OldTitle: before.Title})
}

// DeleteTask removes a task and reports what was deleted.
func (t *Tools) DeleteTask(ctx context.Context, userID string, taskID int64) Envelope {
	if !validUserID(userID) {
		return Fail(CodeInvalidUserID, "user_id is required")
	}
	if taskID <= 0 {
		return Fail(CodeValidationError, "task_id must be positive")
	}

	task, err := t.store.DeleteTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			return Fail(CodeTaskNotFound, "task not found")
		}
		t.logger.Error("delete task failed", "error", err, "user_id", userID, "task_id", taskID)
		return Fail(CodeDatabaseError, "could not delete the task")
	}
	return Ok(task)
}
