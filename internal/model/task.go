// Package model defines the core domain types for Tasuki.
//
// All types are request-scoped value objects except Task, which corresponds
// directly to the tasks table. Types use strong typing (enums, time.Time)
// and avoid interface{} wherever possible.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is a task's urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is one of the three known levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Field length limits for task fields. These match the persistence schema
// and are enforced again at the tool layer regardless of what the extractor
// produced.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 2000
	MaxMessageLen     = 1000
	MaxResponseLen    = 500
)

// Task is a todo item owned by a single user. Every query that reads or
// writes a Task row carries a user_id equality filter; no code path touches
// a row without one.
type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateTaskParams are the persisted fields of a new task.
// Tasks always start with completed=false.
type CreateTaskParams struct {
	UserID      string
	Title       string
	Description *string
	Priority    *Priority
	DueDate     *time.Time
}

// TaskFilter narrows a task listing. Nil fields mean "no filter".
type TaskFilter struct {
	Completed *bool
	Priority  *Priority
}

// ValidateTitle checks the 1..500 character title constraint.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title must be %d characters or less", MaxTitleLen)
	}
	return nil
}

// ValidateDescription checks the optional description length constraint.
func ValidateDescription(desc *string) error {
	if desc != nil && len(*desc) > MaxDescriptionLen {
		return fmt.Errorf("description must be %d characters or less", MaxDescriptionLen)
	}
	return nil
}
