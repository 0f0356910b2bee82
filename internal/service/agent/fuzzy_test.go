package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/model"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("Buy milk", "buy milk"))
	assert.Equal(t, 0.0, similarity("", "buy milk"))

	// Containment scores by length ratio.
	assert.InDelta(t, 8.0/12.0, similarity("buy milk", "buy milk now"), 0.001)
	assert.Greater(t, similarity("buy milk", "buy milk!"), 0.8)

	// Disjoint titles score low.
	assert.Less(t, similarity("file taxes", "buy milk"), matchThreshold)
}

func TestResolveByTitle(t *testing.T) {
	now := time.Now()
	tasks := []model.Task{
		{ID: 1, Title: "Buy milk", UpdatedAt: now.Add(-time.Hour)},
		{ID: 2, Title: "Buy milk and eggs", UpdatedAt: now},
		{ID: 3, Title: "File taxes", UpdatedAt: now},
	}

	t.Run("exact beats partial", func(t *testing.T) {
		task, ok := resolveByTitle(tasks, "buy milk")
		require.True(t, ok)
		assert.Equal(t, int64(1), task.ID)
	})

	t.Run("below threshold", func(t *testing.T) {
		_, ok := resolveByTitle(tasks, "walk the dog")
		assert.False(t, ok)
	})

	t.Run("tie goes to most recently updated", func(t *testing.T) {
		dup := []model.Task{
			{ID: 1, Title: "Buy milk", UpdatedAt: now.Add(-time.Hour)},
			{ID: 2, Title: "Buy milk", UpdatedAt: now},
		}
		task, ok := resolveByTitle(dup, "buy milk")
		require.True(t, ok)
		assert.Equal(t, int64(2), task.ID)
	})

	t.Run("empty hint never matches", func(t *testing.T) {
		_, ok := resolveByTitle(tasks, "")
		assert.False(t, ok)
	})
}
