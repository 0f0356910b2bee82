// Package agent turns a natural-language message into one task operation
// and a short reply.
//
// Processing is stateless per request: classify, extract parameters,
// resolve any title reference against the user's current tasks, dispatch to
// exactly one tool, format the result. Nothing is remembered between calls.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/service/intent"
	"github.com/tasuki-ai/tasuki/internal/tools"
)

// Tool names reported in reply metadata.
const (
	toolAddTask      = "add_task"
	toolListTasks    = "list_tasks"
	toolCompleteTask = "complete_task"
	toolUpdateTask   = "update_task"
	toolDeleteTask   = "delete_task"
)

// Classifier resolves a message to an operation. *intent.Classifier
// satisfies it.
type Classifier interface {
	Classify(ctx context.Context, message string) model.Classification
}

// Agent is the stateless message processor.
type Agent struct {
	classifier Classifier
	tools      *tools.Tools
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an Agent.
func New(classifier Classifier, toolSet *tools.Tools, logger *slog.Logger) *Agent {
	return &Agent{
		classifier: classifier,
		tools:      toolSet,
		logger:     logger,
		now:        time.Now,
	}
}

// Process handles one message for one user and always produces a reply.
// Failures inside the pipeline surface as user-facing sentences, never as
// errors.
func (a *Agent) Process(ctx context.Context, userID, message string) model.ChatResponse {
	start := a.now()

	req := model.ChatRequest{Message: message}
	if err := req.Validate(); err != nil {
		return a.reply(start, formatError(tools.Fail(tools.CodeValidationError, err.Error())), model.Classification{Operation: model.IntentUnknown}, "")
	}

	classification := a.classifier.Classify(ctx, message)
	if !classification.Actionable() {
		return a.reply(start, errorSentences[tools.CodeUnknownIntent], classification, "")
	}

	params, clarification := intent.Extract(classification.Operation, message)
	if clarification != nil {
		return a.reply(start, clarification.Prompt, classification, "")
	}

	reply, toolCalled := a.dispatch(ctx, userID, params)
	return a.reply(start, reply, classification, toolCalled)
}

func (a *Agent) reply(start time.Time, text string, c model.Classification, toolCalled string) model.ChatResponse {
	return model.ChatResponse{
		Response: text,
		Metadata: &model.ChatMetadata{
			Intent:     c.Operation,
			ToolCalled: toolCalled,
			Confidence: c.Confidence,
			DurationMS: a.now().Sub(start).Milliseconds(),
		},
	}
}

// dispatch runs exactly one tool for the extracted parameters. A panic in a
// tool degrades to a generic failure reply instead of killing the request.
func (a *Agent) dispatch(ctx context.Context, userID string, params *model.Parameters) (reply string, toolCalled string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("tool dispatch panicked", "panic", r, "user_id", userID)
			reply = formatError(tools.Fail(tools.CodeInternalError, "internal error"))
		}
	}()

	switch {
	case params.Create != nil:
		return a.runCreate(ctx, userID, params.Create), toolAddTask
	case params.List != nil:
		return a.runList(ctx, userID, params.List), toolListTasks
	case params.Complete != nil:
		return a.runComplete(ctx, userID, params.Complete), toolCompleteTask
	case params.Update != nil:
		return a.runUpdate(ctx, userID, params.Update), toolUpdateTask
	case params.Delete != nil:
		return a.runDelete(ctx, userID, params.Delete), toolDeleteTask
	}
	return errorSentences[tools.CodeUnknownIntent], ""
}

func (a *Agent) runCreate(ctx context.Context, userID string, p *model.CreateParams) string {
	in := tools.AddTaskInput{
		Title:       p.Title,
		Description: p.Description,
		Priority:    p.Priority,
	}
	if p.DueDate != nil {
		in.DueDate = intent.ParseDuePhrase(*p.DueDate, a.now())
	}

	env := a.tools.AddTask(ctx, userID, in)
	if !env.Success {
		return formatError(env)
	}
	return formatCreated(env.Data.(model.Task))
}

func (a *Agent) runList(ctx context.Context, userID string, p *model.ListParams) string {
	env := a.tools.ListTasks(ctx, userID, tools.ListTasksInput{
		Completed: p.Completed,
		Priority:  p.Priority,
	})
	if !env.Success {
		return formatError(env)
	}
	return formatList(env.Data.([]model.Task))
}

func (a *Agent) runComplete(ctx context.Context, userID string, p *model.CompleteParams) string {
	taskID, failure := a.resolveRef(ctx, userID, p.Ref)
	if failure != nil {
		return formatError(*failure)
	}

	env := a.tools.CompleteTask(ctx, userID, tools.CompleteTaskInput{
		TaskID:    taskID,
		Completed: p.Completed,
	})
	if !env.Success {
		return formatError(env)
	}
	return formatCompleted(env.Data.(model.Task))
}

func (a *Agent) runUpdate(ctx context.Context, userID string, p *model.UpdateParams) string {
	taskID, failure := a.resolveRef(ctx, userID, p.Ref)
	if failure != nil {
		return formatError(*failure)
	}

	env := a.tools.UpdateTask(ctx, userID, tools.UpdateTaskInput{
		TaskID:         taskID,
		NewTitle:       p.NewTitle,
		NewDescription: p.NewDescription,
	})
	if !env.Success {
		return formatError(env)
	}
	return formatUpdated(env.Data.(tools.UpdateResult))
}

func (a *Agent) runDelete(ctx context.Context, userID string, p *model.DeleteParams) string {
	taskID, failure := a.resolveRef(ctx, userID, p.Ref)
	if failure != nil {
		return formatError(*failure)
	}

	env := a.tools.DeleteTask(ctx, userID, taskID)
	if !env.Success {
		return formatError(env)
	}
	return formatDeleted(env.Data.(model.Task))
}

// resolveRef turns a task reference into a concrete ID. Title hints are
// matched fuzzily against the user's own tasks only.
func (a *Agent) resolveRef(ctx context.Context, userID string, ref model.TaskRef) (int64, *tools.Envelope) {
	if ref.TaskID > 0 {
		return ref.TaskID, nil
	}

	env := a.tools.ListTasks(ctx, userID, tools.ListTasksInput{})
	if !env.Success {
		return 0, &env
	}

	task, ok := resolveByTitle(env.Data.([]model.Task), ref.TitleHint)
	if !ok {
		failure := tools.Fail(tools.CodeTaskNotFound, "no task matched the title")
		return 0, &failure
	}
	return task.ID, nil
}
