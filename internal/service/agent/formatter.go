package agent

import (
	"fmt"
	"strings"

	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/tools"
)

// maxListed caps how many tasks a list reply names. The count in the reply
// always reflects the full total.
const maxListed = 10

// errorSentences maps tool error codes to user-facing replies. Codes
// outside the map get a generic sentence rather than leaking internals.
var errorSentences = map[string]string{
	tools.CodeTaskNotFound:    "I couldn't find that task. Try listing your tasks first.",
	tools.CodeInvalidUserID:   "I couldn't work out who you are. Please sign in again.",
	tools.CodeValidationError: "That didn't look right: %s",
	tools.CodeDatabaseError:   "Something went wrong saving your tasks. Please try again.",
	tools.CodeUnknownIntent:   "I can only help with task management. Try 'create a task' or 'show my tasks'.",
}

const genericErrorSentence = "Something went wrong. Please try again."

// formatError renders a failure envelope as one user-facing sentence.
func formatError(env tools.Envelope) string {
	sentence, ok := errorSentences[env.ErrorCode]
	if !ok {
		return genericErrorSentence
	}
	if strings.Contains(sentence, "%s") {
		return clip(fmt.Sprintf(sentence, env.Error))
	}
	return sentence
}

// formatCreated renders a successful add_task reply.
func formatCreated(task model.Task) string {
	details := []string{}
	if task.Priority != nil {
		details = append(details, string(*task.Priority)+" priority")
	}
	if task.DueDate != nil {
		details = append(details, "due "+task.DueDate.Format("2006-01-02"))
	}
	reply := fmt.Sprintf("Task created: %s", task.Title)
	if len(details) > 0 {
		reply += " (" + strings.Join(details, ", ") + ")"
	}
	return clip(reply)
}

// formatList renders a successful list_tasks reply.
func formatList(items []model.Task) string {
	if len(items) == 0 {
		return "You have no tasks."
	}

	noun := "tasks"
	if len(items) == 1 {
		noun = "task"
	}

	shown := items
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	titles := make([]string, len(shown))
	for i, task := range shown {
		status := ""
		if task.Completed {
			status = " (done)"
		}
		titles[i] = task.Title + status
	}

	reply := fmt.Sprintf("You have %d %s: %s", len(items), noun, strings.Join(titles, ", "))
	if len(items) > maxListed {
		reply += fmt.Sprintf(", and %d more", len(items)-maxListed)
	}
	return clip(reply + ".")
}

// formatCompleted renders a successful complete_task reply.
func formatCompleted(task model.Task) string {
	state := "done"
	if !task.Completed {
		state = "not done"
	}
	return clip(fmt.Sprintf("Marked '%s' as %s.", task.Title, state))
}

// formatUpdated renders a successful update_task reply.
func formatUpdated(result tools.UpdateResult) string {
	if result.OldTitle != result.Task.Title {
		return clip(fmt.Sprintf("Updated '%s' to '%s'.", result.OldTitle, result.Task.Title))
	}
	return clip(fmt.Sprintf("Updated '%s'.", result.Task.Title))
}

// formatDeleted renders a successful delete_task reply.
func formatDeleted(task model.Task) string {
	return clip(fmt.Sprintf("Deleted task '%s'.", task.Title))
}

// clip enforces the reply length cap, truncating on a rune boundary with an
// ellipsis.
func clip(s string) string {
	if len(s) <= model.MaxResponseLen {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > model.MaxResponseLen-3 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
