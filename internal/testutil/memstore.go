package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// MemStore is an in-memory task store with the same ownership semantics as
// the real one: a task belonging to another user is indistinguishable from
// a missing task. Not safe for concurrent use.
type MemStore struct {
	// Tasks maps task ID to task. Tests may inspect it directly.
	Tasks map[int64]model.Task
	// Fail, when set, is returned by every store call.
	Fail error

	nextID int64
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{Tasks: map[int64]model.Task{}, nextID: 1}
}

func (m *MemStore) CreateTask(_ context.Context, params model.CreateTaskParams) (model.Task, error) {
	if m.Fail != nil {
		return model.Task{}, m.Fail
	}
	now := time.Now().UTC()
	task := model.Task{
		ID:          m.nextID,
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		DueDate:     params.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.Tasks[task.ID] = task
	m.nextID++
	return task, nil
}

func (m *MemStore) ListTasks(_ context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []model.Task{}
	for _, task := range m.Tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != nil && (task.Priority == nil || *task.Priority != *filter.Priority) {
			continue
		}
		out = append(out, task)
	}
	// Most recently updated first, matching the real store's ordering.
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemStore) GetTask(_ context.Context, userID string, taskID int64) (model.Task, error) {
	if m.Fail != nil {
		return model.Task{}, m.Fail
	}
	task, ok := m.Tasks[taskID]
	if !ok || task.UserID != userID {
		return model.Task{}, storage.ErrTaskNotFound
	}
	return task, nil
}

func (m *MemStore) SetTaskCompleted(ctx context.Context, userID string, taskID int64, completed bool) (model.Task, error) {
	task, err := m.GetTask(ctx, userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	task.Completed = completed
	task.UpdatedAt = time.Now().UTC()
	m.Tasks[taskID] = task
	return task, nil
}

func (m *MemStore) UpdateTask(ctx context.Context, userID string, taskID int64, newTitle, newDescription *string) (model.Task, error) {
	task, err := m.GetTask(ctx, userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if newTitle != nil {
		task.Title = *newTitle
	}
	if newDescription != nil {
		task.Description = newDescription
	}
	task.UpdatedAt = time.Now().UTC()
	m.Tasks[taskID] = task
	return task, nil
}

func (m *MemStore) DeleteTask(ctx context.Context, userID string, taskID int64) (model.Task, error) {
	task, err := m.GetTask(ctx, userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	delete(m.Tasks, taskID)
	return task, nil
}
