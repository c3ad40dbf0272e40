package models

import "time"

// RunStatus represents the status of a batch generation run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Run represents one batch generation run over a roster
type Run struct {
	ID        string       `json:"id"`
	Status    RunStatus    `json:"status"`
	Mode      OutputMode   `json:"mode"`
	Total     int          `json:"total"`
	Completed int          `json:"completed"`
	Progress  float64      `json:"progress"`
	Results   []TaskRecord `json:"results,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// RunResponse represents the response when starting a run
type RunResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// BatchResponse represents the response of a synchronous generation call
type BatchResponse struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Results   []TaskRecord `json:"results"`
	Errors    []string     `json:"errors,omitempty"`
}
