package domain

import "time"

// RunStatus represents the current state of an operations run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// OperationRun tracks a single operations run for a store and date.
type OperationRun struct {
	ID           string     `json:"id" db:"id"`
	StoreID      string     `json:"store_id" db:"store_id"`
	RunDate      time.Time  `json:"run_date" db:"run_date"`
	Status       RunStatus  `json:"status" db:"status"`
	Stage        string     `json:"stage" db:"stage"`
	ModelVersion string     `json:"model_version" db:"model_version"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
}
