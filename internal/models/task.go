package models

// OutputMode selects which task schema the generator produces.
type OutputMode string

const (
	// ModeExtended accepts noisy model output, tracks priority and uses the
	// status enum with "new" as the default.
	ModeExtended OutputMode = "extended"
	// ModeStrict requires a bare JSON object with all six fields present and
	// always reports the literal status "Todo".
	ModeStrict OutputMode = "strict"
)

// ValidOutputMode reports whether mode is one of the supported output modes.
func ValidOutputMode(mode OutputMode) bool {
	return mode == ModeExtended || mode == ModeStrict
}

// Task status values accepted from the model in extended mode
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"

	// StatusTodo is the fixed status used by strict mode
	StatusTodo = "Todo"
)

// Task priority values (extended mode only)
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// AuthorAI is the fixed author value stamped on every generated record.
const AuthorAI = "AI"

// ValidStatus reports whether status is one of the extended-mode enum values.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether priority is one of the enum values.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Student represents one roster row. LocalizedRole is the display role used
// in prompts and output; Role keeps the raw value from the roster.
type Student struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	LocalizedRole string `json:"localizedRole"`
}

// TaskRecord is one generated assignment for one student.
//
// Role, Executor and Author are identity fields owned by the caller: they are
// always overwritten after parsing the model's answer and never trusted from
// the raw response.
type TaskRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	Role        string `json:"role"`
	Executor    string `json:"executor"`
	Author      string `json:"author"`
}
