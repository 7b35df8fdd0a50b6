package models

// TaskRunStatus is the terminal or in-flight state of a TaskRun.
type TaskRunStatus string

const (
	TaskRunStatusRunning   TaskRunStatus = "running"
	TaskRunStatusCompleted TaskRunStatus = "completed"
	TaskRunStatusFailed    TaskRunStatus = "failed"
)

// TaskRun records one stage or pipeline invocation made by the `run`
// command or the `serve` cron job, adapted (not
// copied) from the teacher's JobHistory pattern (internal/models/job.go)
// per SPEC_FULL.md's supplemented features: ambient observability over
// the core's own task/processor executions, not a pipeline feature.
type TaskRun struct {
	BaseModel

	TaskName    string        `gorm:"not null;size:255;index" json:"task_name"`
	FileCount   int           `gorm:"not null;default:0" json:"file_count"`
	StartedAt   *Time         `gorm:"index" json:"started_at,omitempty"`
	CompletedAt *Time         `json:"completed_at,omitempty"`
	Status      TaskRunStatus `gorm:"not null;size:20;index" json:"status"`
	Error       string        `gorm:"type:text" json:"error,omitempty"`
}

// TableName returns the table name for TaskRun.
func (TaskRun) TableName() string { return "task_runs" }
