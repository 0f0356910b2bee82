package intent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/service/fallback"
)

// stubProvider returns a canned verdict and records whether it was called.
type stubProvider struct {
	result fallback.Result
	err    error
	called bool
}

func (s *stubProvider) Classify(_ context.Context, _ string) (fallback.Result, error) {
	s.called = true
	return s.result, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestClassifyPatterns(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		operation  model.Intent
		confidence float64
	}{
		{"create verb", "create a task to buy milk", model.IntentCreate, 0.95},
		{"remind me", "remind me to call mom", model.IntentCreate, 0.95},
		{"add todo", "add a new todo for groceries", model.IntentCreate, 0.95},
		{"show tasks", "show my tasks", model.IntentList, 0.98},
		{"what are", "what are my tasks?", model.IntentList, 0.98},
		{"check tasks", "check my open tasks", model.IntentList, 0.98},
		{"mark as done", "mark buy milk as done", model.IntentComplete, 0.92},
		{"undo completion", "undo completion of task 3", model.IntentComplete, 0.92},
		{"rename to", "rename task 2 to call dentist", model.IntentUpdate, 0.89},
		{"get rid of", "get rid of the old reminder", model.IntentDelete, 0.91},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &stubProvider{}
			c := NewClassifier(fb, time.Second, testLogger())

			got := c.Classify(context.Background(), tt.message)
			assert.Equal(t, tt.operation, got.Operation)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, model.MethodPattern, got.Method)
			assert.False(t, fb.called, "pattern match must not reach the fallback provider")
		})
	}
}

func TestClassifyFallback(t *testing.T) {
	t.Run("no pattern match", func(t *testing.T) {
		fb := &stubProvider{result: fallback.Result{Operation: model.IntentList, Confidence: 0.82}}
		c := NewClassifier(fb, time.Second, testLogger())

		got := c.Classify(context.Background(), "anything on my plate today?")
		require.True(t, fb.called)
		assert.Equal(t, model.IntentList, got.Operation)
		assert.Equal(t, 0.82, got.Confidence)
		assert.Equal(t, model.MethodFallback, got.Method)
	})

	t.Run("conflicting families escalate", func(t *testing.T) {
		fb := &stubProvider{result: fallback.Result{Operation: model.IntentDelete, Confidence: 0.9}}
		c := NewClassifier(fb, time.Second, testLogger())

		// Matches both the delete and complete families.
		got := c.Classify(context.Background(), "delete the finished task")
		require.True(t, fb.called)
		assert.Equal(t, model.IntentDelete, got.Operation)
	})

	t.Run("low confidence degrades to unknown", func(t *testing.T) {
		fb := &stubProvider{result: fallback.Result{Operation: model.IntentCreate, Confidence: 0.4}}
		c := NewClassifier(fb, time.Second, testLogger())

		got := c.Classify(context.Background(), "hmm something about milk maybe")
		assert.Equal(t, model.IntentUnknown, got.Operation)
		assert.Equal(t, 0.4, got.Confidence)
		assert.False(t, got.Actionable())
	})

	t.Run("provider error degrades to unknown", func(t *testing.T) {
		fb := &stubProvider{err: errors.New("upstream down")}
		c := NewClassifier(fb, time.Second, testLogger())

		got := c.Classify(context.Background(), "anything on my plate today?")
		assert.Equal(t, model.IntentUnknown, got.Operation)
		assert.Equal(t, 0.0, got.Confidence)
		assert.Equal(t, model.MethodFallback, got.Method)
	})

	t.Run("noop provider", func(t *testing.T) {
		c := NewClassifier(fallback.NewNoopProvider(), time.Second, testLogger())

		got := c.Classify(context.Background(), "what's the weather like?")
		assert.Equal(t, model.IntentUnknown, got.Operation)
		assert.Equal(t, fallback.NoopConfidence, got.Confidence)
		assert.False(t, got.Actionable())
	})
}
