package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// Clarification prompts returned when a required parameter cannot be pulled
// out of the message.
const (
	promptMissingTitle  = "What should the task be called?"
	promptMissingRef    = "Which task do you mean? You can say its number or part of its title."
	promptMissingChange = "What would you like to change it to?"
	promptUnsupportedOp = "I can only help with task management. Try 'create a task' or 'show my tasks'."
)

var (
	reTrailingPunct = regexp.MustCompile(`[.!?]+$`)
	reTaskID        = regexp.MustCompile(`\btask\s+#?(\d+)\b`)
	reQuoted        = regexp.MustCompile(`['"]([^'"]+)['"]`)

	reCreateTitle = regexp.MustCompile(`(?i)(?:create|add|make|new)\s+(?:a\s+)?(?:new\s+)?(?:\w+\s+){0,2}?(?:task|todo|reminder)\s*(?:to\s+|:\s*)?(.*)$`)
	reRemindTitle = regexp.MustCompile(`(?i)remind\s+me\s+to\s+(.+)$`)

	rePriorityPhrase = regexp.MustCompile(`(?i)\b(?:with\s+)?(high|medium|low)\s+priority\b`)
	reDescription    = regexp.MustCompile(`(?i)(?:with\s+note:|description:)\s*(.+)$`)
	reDueDate        = regexp.MustCompile(`(?i)\b(?:due|by)\s+(today|tomorrow|\d{4}-\d{2}-\d{2})\b`)

	reListIncomplete = regexp.MustCompile(`\b(left|incomplete|not\s+done|pending|remaining|open)\b`)
	reListComplete   = regexp.MustCompile(`\b(completed|done|finished)\b`)

	reMarkAs       = regexp.MustCompile(`(?i)(?:mark|set|complete|finish)\s+(.+?)\s+as\b`)
	reCompleteTail = regexp.MustCompile(`(?i)(?:complete|finish|finished)\s+(.+)$`)
	reUndo         = regexp.MustCompile(`(?i)\bundo\b`)

	reChangeQuoted = regexp.MustCompile(`['"]([^'"]+)['"]\s+to\s+['"]([^'"]+)['"]`)
	reChangePlain  = regexp.MustCompile(`(?i)(?:change|update|rename|modify|edit)\s+(.+?)\s+to\s+(.+)$`)
	reNewDesc      = regexp.MustCompile(`(?i)description\s+to\s+(.+)$`)

	reDeleteTail = regexp.MustCompile(`(?i)(?:delete|remove|get\s+rid\s+of)\s+(.+)$`)
)

// Extract produces the operation-specific parameter set for a classified
// message, or a clarification prompt when a required piece is missing.
// Exactly one return value is non-nil.
func Extract(operation model.Intent, message string) (*model.Parameters, *model.Clarification) {
	switch operation {
	case model.IntentCreate:
		return extractCreate(message)
	case model.IntentList:
		return extractList(message)
	case model.IntentComplete:
		return extractComplete(message)
	case model.IntentUpdate:
		return extractUpdate(message)
	case model.IntentDelete:
		return extractDelete(message)
	default:
		return nil, &model.Clarification{Prompt: promptUnsupportedOp}
	}
}

func extractCreate(message string) (*model.Parameters, *model.Clarification) {
	p := model.CreateParams{}
	working := message

	// Pull the description clause out first so its text cannot leak into the
	// title or date phrase.
	if m := reDescription.FindStringSubmatch(working); m != nil {
		desc := cleanPhrase(m[1])
		if desc != "" {
			p.Description = &desc
		}
		working = strings.TrimSpace(reDescription.ReplaceAllString(working, ""))
	}

	if m := rePriorityPhrase.FindStringSubmatch(working); m != nil {
		prio := model.Priority(strings.ToLower(m[1]))
		p.Priority = &prio
		working = strings.TrimSpace(rePriorityPhrase.ReplaceAllString(working, ""))
	}

	if m := reDueDate.FindStringSubmatch(working); m != nil {
		due := strings.ToLower(m[1])
		p.DueDate = &due
		working = strings.TrimSpace(reDueDate.ReplaceAllString(working, ""))
	}

	var title string
	if m := reRemindTitle.FindStringSubmatch(working); m != nil {
		title = m[1]
	} else if m := reCreateTitle.FindStringSubmatch(working); m != nil {
		title = m[1]
	} else if m := reQuoted.FindStringSubmatch(working); m != nil {
		title = m[1]
	}

	title = cleanPhrase(title)
	if title == "" {
		return nil, &model.Clarification{Prompt: promptMissingTitle}
	}
	p.Title = capitalize(title)

	return &model.Parameters{Create: &p}, nil
}

func extractList(message string) (*model.Parameters, *model.Clarification) {
	lower := strings.ToLower(message)
	p := model.ListParams{}

	// "incomplete"/"pending" beats "done": "not done" contains both.
	if reListIncomplete.MatchString(lower) {
		f := false
		p.Completed = &f
	} else if reListComplete.MatchString(lower) {
		t := true
		p.Completed = &t
	}

	if m := rePriorityPhrase.FindStringSubmatch(lower); m != nil {
		prio := model.Priority(m[1])
		p.Priority = &prio
	}

	return &model.Parameters{List: &p}, nil
}

func extractComplete(message string) (*model.Parameters, *model.Clarification) {
	ref := extractTaskRef(message, func(msg string) string {
		if m := reMarkAs.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
		if m := reCompleteTail.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
		return ""
	})
	if ref.Empty() {
		return nil, &model.Clarification{Prompt: promptMissingRef}
	}

	return &model.Parameters{Complete: &model.CompleteParams{
		Ref:       ref,
		Completed: !reUndo.MatchString(message),
	}}, nil
}

func extractUpdate(message string) (*model.Parameters, *model.Clarification) {
	p := model.UpdateParams{}

	if m := reChangeQuoted.FindStringSubmatch(message); m != nil {
		p.Ref.TitleHint = strings.TrimSpace(m[1])
		title := cleanPhrase(m[2])
		p.NewTitle = &title
	} else if m := reNewDesc.FindStringSubmatch(message); m != nil {
		desc := cleanPhrase(m[1])
		p.NewDescription = &desc
	} else if m := reChangePlain.FindStringSubmatch(message); m != nil {
		p.Ref.TitleHint = stripRefNoise(m[1])
		title := cleanPhrase(m[2])
		p.NewTitle = &title
	}

	// An explicit numeric reference wins over whatever hint was captured.
	if id, ok := extractTaskID(message); ok {
		p.Ref.TaskID = id
		p.Ref.TitleHint = ""
	}

	if p.Ref.Empty() {
		return nil, &model.Clarification{Prompt: promptMissingRef}
	}
	if p.NewTitle == nil && p.NewDescription == nil {
		return nil, &model.Clarification{Prompt: promptMissingChange}
	}
	if p.NewTitle != nil && *p.NewTitle == "" {
		return nil, &model.Clarification{Prompt: promptMissingChange}
	}

	return &model.Parameters{Update: &p}, nil
}

func extractDelete(message string) (*model.Parameters, *model.Clarification) {
	ref := extractTaskRef(message, func(msg string) string {
		if m := reDeleteTail.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
		return ""
	})
	if ref.Empty() {
		return nil, &model.Clarification{Prompt: promptMissingRef}
	}

	return &model.Parameters{Delete: &model.DeleteParams{Ref: ref}}, nil
}

// extractTaskRef builds a task reference: an explicit positive numeric ID
// wins, then a quoted phrase, then whatever tailFn captures. Non-positive
// numeric references degrade to a title hint rather than a hard failure.
func extractTaskRef(message string, tailFn func(string) string) model.TaskRef {
	if id, ok := extractTaskID(message); ok {
		return model.TaskRef{TaskID: id}
	}
	if m := reQuoted.FindStringSubmatch(message); m != nil {
		return model.TaskRef{TitleHint: strings.TrimSpace(m[1])}
	}
	if tail := tailFn(message); tail != "" {
		hint := stripRefNoise(tail)
		// A digit-only hint is a numeric reference that already failed the ID
		// check, not a usable title.
		if hint != "" && !isDigits(hint) {
			return model.TaskRef{TitleHint: hint}
		}
	}
	return model.TaskRef{}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func extractTaskID(message string) (int64, bool) {
	m := reTaskID.FindStringSubmatch(strings.ToLower(message))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// stripRefNoise removes leading articles and surrounding "task"/"todo"
// words from a captured reference phrase: "the buy milk task" becomes
// "buy milk".
func stripRefNoise(phrase string) string {
	s := cleanPhrase(phrase)
	for {
		lower := strings.ToLower(s)
		switch {
		case strings.HasPrefix(lower, "the "):
			s = strings.TrimSpace(s[4:])
		case strings.HasPrefix(lower, "my "):
			s = strings.TrimSpace(s[3:])
		case strings.HasPrefix(lower, "task "):
			s = strings.TrimSpace(s[5:])
		case strings.HasPrefix(lower, "todo "):
			s = strings.TrimSpace(s[5:])
		case strings.HasSuffix(lower, " task"):
			s = strings.TrimSpace(s[:len(s)-5])
		case strings.HasSuffix(lower, " todo"):
			s = strings.TrimSpace(s[:len(s)-5])
		default:
			return s
		}
	}
}

// cleanPhrase trims whitespace and trailing punctuation.
func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	s = reTrailingPunct.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseDuePhrase converts an extracted date phrase into a concrete time.
// Returns nil for phrases it does not understand; the task is then created
// without a due date rather than rejected.
func ParseDuePhrase(phrase string, now time.Time) *time.Time {
	switch strings.ToLower(strings.TrimSpace(phrase)) {
	case "today":
		t := endOfDay(now)
		return &t
	case "tomorrow":
		t := endOfDay(now.AddDate(0, 0, 1))
		return &t
	default:
		if t, err := time.Parse("2006-01-02", phrase); err == nil {
			t = endOfDay(t)
			return &t
		}
	}
	return nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
