package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this
// package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	code := setupAndRun(m, tc)
	tc.Terminate()
	os.Exit(code)
}

func setupAndRun(m *testing.M, tc *testutil.TestContainer) int {
	ctx := context.Background()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage test: create DB: %v\n", err)
		return 1
	}
	defer testDB.Close()

	return m.Run()
}

func mustCreate(t *testing.T, userID, title string) model.Task {
	t.Helper()
	task, err := testDB.CreateTask(context.Background(), model.CreateTaskParams{
		UserID: userID,
		Title:  title,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()

	desc := "get oat milk"
	high := model.PriorityHigh
	task, err := testDB.CreateTask(ctx, model.CreateTaskParams{
		UserID:      "create-alice",
		Title:       "Buy milk",
		Description: &desc,
		Priority:    &high,
	})
	require.NoError(t, err)

	assert.Positive(t, task.ID)
	assert.Equal(t, "create-alice", task.UserID)
	assert.Equal(t, "Buy milk", task.Title)
	require.NotNil(t, task.Description)
	assert.Equal(t, "get oat milk", *task.Description)
	require.NotNil(t, task.Priority)
	assert.Equal(t, model.PriorityHigh, *task.Priority)
	assert.False(t, task.Completed)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()

	first := mustCreate(t, "list-alice", "First")
	second := mustCreate(t, "list-alice", "Second")
	mustCreate(t, "list-bob", "Bob's task")

	t.Run("scoped and ordered", func(t *testing.T) {
		tasks, err := testDB.ListTasks(ctx, "list-alice", model.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		// Most recently updated first.
		assert.Equal(t, second.ID, tasks[0].ID)
		assert.Equal(t, first.ID, tasks[1].ID)
	})

	t.Run("completed filter", func(t *testing.T) {
		_, err := testDB.SetTaskCompleted(ctx, "list-alice", first.ID, true)
		require.NoError(t, err)

		done := true
		tasks, err := testDB.ListTasks(ctx, "list-alice", model.TaskFilter{Completed: &done})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, first.ID, tasks[0].ID)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		tasks, err := testDB.ListTasks(ctx, "list-nobody", model.TaskFilter{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestGetTaskOwnership(t *testing.T) {
	ctx := context.Background()
	task := mustCreate(t, "own-alice", "Private task")

	got, err := testDB.GetTask(ctx, "own-alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	// Another user's lookup is indistinguishable from a missing row.
	_, err = testDB.GetTask(ctx, "own-bob", task.ID)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	_, err = testDB.GetTask(ctx, "own-alice", 999999)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func TestSetTaskCompleted(t *testing.T) {
	ctx := context.Background()
	task := mustCreate(t, "done-alice", "Toggle me")

	updated, err := testDB.SetTaskCompleted(ctx, "done-alice", task.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt) || updated.UpdatedAt.Equal(task.UpdatedAt))

	undone, err := testDB.SetTaskCompleted(ctx, "done-alice", task.ID, false)
	require.NoError(t, err)
	assert.False(t, undone.Completed)

	_, err = testDB.SetTaskCompleted(ctx, "done-bob", task.ID, true)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	task := mustCreate(t, "upd-alice", "Old title")

	t.Run("title only", func(t *testing.T) {
		newTitle := "New title"
		updated, err := testDB.UpdateTask(ctx, "upd-alice", task.ID, &newTitle, nil)
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Nil(t, updated.Description)
	})

	t.Run("description only keeps title", func(t *testing.T) {
		desc := "some details"
		updated, err := testDB.UpdateTask(ctx, "upd-alice", task.ID, nil, &desc)
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "some details", *updated.Description)
	})

	t.Run("other user", func(t *testing.T) {
		newTitle := "Hijack"
		_, err := testDB.UpdateTask(ctx, "upd-bob", task.ID, &newTitle, nil)
		assert.ErrorIs(t, err, storage.ErrTaskNotFound)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	task := mustCreate(t, "del-alice", "Doomed task")

	_, err := testDB.DeleteTask(ctx, "del-bob", task.ID)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	deleted, err := testDB.DeleteTask(ctx, "del-alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doomed task", deleted.Title)

	_, err = testDB.DeleteTask(ctx, "del-alice", task.ID)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}
