package model

// Intent is the task operation a message is requesting. The enum is closed:
// the dispatcher matches it exhaustively, so adding an operation is a
// compile-time-visible change.
type Intent string

const (
	IntentCreate   Intent = "CREATE"
	IntentList     Intent = "LIST"
	IntentComplete Intent = "COMPLETE"
	IntentUpdate   Intent = "UPDATE"
	IntentDelete   Intent = "DELETE"
	IntentUnknown  Intent = "UNKNOWN"
)

// Method records which classification path produced a result.
type Method string

const (
	MethodPattern  Method = "PATTERN"
	MethodFallback Method = "FALLBACK"
)

// ConfidenceGate is the minimum classification confidence that may trigger
// a tool call. Anything below it routes to guidance or the fallback pass.
const ConfidenceGate = 0.70

// Classification is the result of intent classification.
type Classification struct {
	Operation  Intent  `json:"operation"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Actionable reports whether the classification clears the confidence gate
// and names a concrete operation.
func (c Classification) Actionable() bool {
	return c.Operation != IntentUnknown && c.Confidence >= ConfidenceGate
}

// CreateParams are the extracted arguments for a CREATE operation.
type CreateParams struct {
	Title       string
	Description *string
	Priority    *Priority
	DueDate     *string // raw date phrase; parsed at the tool boundary
}

// ListParams are the extracted filters for a LIST operation.
type ListParams struct {
	Completed *bool
	Priority  *Priority
}

// TaskRef identifies an existing task either by explicit ID or by a fuzzy
// title hint. At least one side is set whenever extraction succeeds for
// COMPLETE, UPDATE, or DELETE.
type TaskRef struct {
	TaskID    int64  // positive when an explicit numeric reference was found
	TitleHint string // non-empty when a quoted or trailing phrase was captured
}

// Empty reports whether the reference carries no identifying information.
func (r TaskRef) Empty() bool {
	return r.TaskID <= 0 && r.TitleHint == ""
}

// CompleteParams are the extracted arguments for a COMPLETE operation.
// Completed is false when the message asked to undo a completion.
type CompleteParams struct {
	Ref       TaskRef
	Completed bool
}

// UpdateParams are the extracted arguments for an UPDATE operation.
// At least one of NewTitle or NewDescription is set whenever extraction
// succeeds.
type UpdateParams struct {
	Ref            TaskRef
	NewTitle       *string
	NewDescription *string
}

// DeleteParams are the extracted arguments for a DELETE operation.
type DeleteParams struct {
	Ref TaskRef
}

// Parameters is the operation-keyed variant produced by the extractor.
// Exactly one field matching the classified operation is non-nil.
type Parameters struct {
	Create   *CreateParams
	List     *ListParams
	Complete *CompleteParams
	Update   *UpdateParams
	Delete   *DeleteParams
}

// Clarification is the extractor's alternative to Parameters: a short prompt
// asking the user for the missing piece instead of invoking a tool.
type Clarification struct {
	Prompt string
}
