package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/tools"
)

func (s *Server) registerTools() {
	// add_task — create a task for the authenticated user.
	s.mcpServer.AddTool(
		mcplib.NewTool("add_task",
			mcplib.WithDescription("Create a new task"),
			mcplib.WithString("title", mcplib.Description("Task title, 1-500 characters"), mcplib.Required()),
			mcplib.WithString("description", mcplib.Description("Optional details, up to 2000 characters")),
			mcplib.WithString("priority", mcplib.Description("low, medium, or high")),
			mcplib.WithString("due_date", mcplib.Description("Due date in YYYY-MM-DD format")),
		),
		s.handleAddTask,
	)

	// list_tasks — the authenticated user's tasks with optional filters.
	s.mcpServer.AddTool(
		mcplib.NewTool("list_tasks",
			mcplib.WithDescription("List your tasks, optionally filtered by completion state or priority"),
			mcplib.WithBoolean("completed", mcplib.Description("Filter by completion state")),
			mcplib.WithString("priority", mcplib.Description("Filter by priority: low, medium, or high")),
		),
		s.handleListTasks,
	)

	// complete_task — toggle completion by ID.
	s.mcpServer.AddTool(
		mcplib.NewTool("complete_task",
			mcplib.WithDescription("Mark a task as done or not done"),
			mcplib.WithNumber("task_id", mcplib.Description("Task identifier"), mcplib.Required()),
			mcplib.WithBoolean("completed", mcplib.Description("Completion state, defaults to true")),
		),
		s.handleCompleteTask,
	)

	// update_task — change title and/or description by ID.
	s.mcpServer.AddTool(
		mcplib.NewTool("update_task",
			mcplib.WithDescription("Update a task's title and/or description"),
			mcplib.WithNumber("task_id", mcplib.Description("Task identifier"), mcplib.Required()),
			mcplib.WithString("title", mcplib.Description("New title")),
			mcplib.WithString("description", mcplib.Description("New description")),
		),
		s.handleUpdateTask,
	)

	// delete_task — remove a task by ID.
	s.mcpServer.AddTool(
		mcplib.NewTool("delete_task",
			mcplib.WithDescription("Delete a task"),
			mcplib.WithNumber("task_id", mcplib.Description("Task identifier"), mcplib.Required()),
		),
		s.handleDeleteTask,
	)
}

// requireUser pulls the authenticated user out of the request context.
func requireUser(ctx context.Context) (string, *mcplib.CallToolResult) {
	userID := ctxutil.UserIDFromContext(ctx)
	if userID == "" {
		return "", errorResult("no authenticated user in request context")
	}
	return userID, nil
}

// envelopeResult renders a tool envelope as an MCP result. Failures become
// MCP tool errors with the stable code prefixed.
func envelopeResult(env tools.Envelope) *mcplib.CallToolResult {
	if !env.Success {
		return errorResult(fmt.Sprintf("%s: %s", env.ErrorCode, env.Error))
	}
	data, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func (s *Server) handleAddTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID, errRes := requireUser(ctx)
	if errRes != nil {
		return errRes, nil
	}

	in := tools.AddTaskInput{Title: request.GetString("title", "")}
	if desc := request.GetString("description", ""); desc != "" {
		in.Description = &desc
	}
	if p := request.GetString("priority", ""); p != "" {
		prio := model.Priority(p)
		in.Priority = &prio
	}
	if raw := request.GetString("due_date", ""); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid due_date %q, expected YYYY-MM-DD", raw)), nil
		}
		in.DueDate = &due
	}

	return envelopeResult(s.tools.AddTask(ctx, userID, in)), nil
}

func (s *Server) handleListTasks(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID, errRes := requireUser(ctx)
	if errRes != nil {
		return errRes, nil
	}

	in := tools.ListTasksInput{}
	args := request.GetArguments()
	if _, present := args["completed"]; present {
		completed := request.GetBool("completed", false)
		in.Completed = &completed
	}
	if p := request.GetString("priority", ""); p != "" {
		prio := model.Priority(p)
		in.Priority = &prio
	}

	return envelopeResult(s.tools.ListTasks(ctx, userID, in)), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID, errRes := requireUser(ctx)
	if errRes != nil {
		return errRes, nil
	}

	in := tools.CompleteTaskInput{
		TaskID:    int64(request.GetInt("task_id", 0)),
		Completed: request.GetBool("completed", true),
	}

	return envelopeResult(s.tools.CompleteTask(ctx, userID, in)), nil
}

func (s *Server) handleUpdateTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID, errRes := requireUser(ctx)
	if errRes != nil {
		return errRes, nil
	}

	in := tools.UpdateTaskInput{TaskID: int64(request.GetInt("task_id", 0))}
	if title := request.GetString("title", ""); title != "" {
		in.NewTitle = &title
	}
	if desc := request.GetString("description", ""); desc != "" {
		in.NewDescription = &desc
	}

	return envelopeResult(s.tools.UpdateTask(ctx, userID, in)), nil
}

func (s *Server) handleDeleteTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID, errRes := requireUser(ctx)
	if errRes != nil {
		return errRes, nil
	}

	taskID := int64(request.GetInt("task_id", 0))
	return envelopeResult(s.tools.DeleteTask(ctx, userID, taskID)), nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
