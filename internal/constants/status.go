package constants

// JobStatus represents the state of a generation job.
// Status values use snake_case for JSON serialization compatibility.
//
//	Pending → Processing, Cancelled
//	Processing → Completed, Failed, Cancelled
//	Completed → Processing (retry)
//	Failed → Processing (retry)
//	Cancelled → Processing (retry)
type JobStatus string

const (
	// JobStatusPending indicates a job is persisted but has not started.
	JobStatusPending JobStatus = "pending"

	// JobStatusProcessing indicates the stage chain is running.
	JobStatusProcessing JobStatus = "processing"

	// JobStatusCompleted indicates every stage finished successfully.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed indicates a stage failed. The job carries a failure reason.
	JobStatusFailed JobStatus = "failed"

	// JobStatusCancelled indicates the job was cancelled before finishing.
	JobStatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of the JobStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further work happens without an explicit retry.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ProjectStatus represents the generation state recorded on a project.
type ProjectStatus string

const (
	// ProjectStatusPending indicates no generation has run, or a partial retry finished.
	ProjectStatusPending ProjectStatus = "pending"

	// ProjectStatusProcessing indicates a job currently owns the project.
	ProjectStatusProcessing ProjectStatus = "processing"

	// ProjectStatusCompleted indicates all documents and the repository were produced.
	ProjectStatusCompleted ProjectStatus = "completed"

	// ProjectStatusFailed indicates the last job failed.
	ProjectStatusFailed ProjectStatus = "failed"

	// ProjectStatusCancelled indicates the last job was cancelled.
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// String returns the string representation of the ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// ClaimableProjectStatuses lists the statuses from which a new job may claim a project.
//
//nolint:gochecknoglobals // Read-only lookup
var ClaimableProjectStatuses = []ProjectStatus{
	ProjectStatusPending,
	ProjectStatusCompleted,
	ProjectStatusFailed,
	ProjectStatusCancelled,
}

// StepStatus represents the progress state of a single pipeline stage.
type StepStatus string

const (
	// StepStatusPending indicates the stage has not run in the current attempt.
	StepStatusPending StepStatus = "pending"

	// StepStatusRunning indicates the stage is executing.
	StepStatusRunning StepStatus = "running"

	// StepStatusCompleted indicates the stage produced its output.
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed indicates the stage returned an error.
	StepStatusFailed StepStatus = "failed"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}

// RetryScope selects how much of the pipeline a retry re-runs.
type RetryScope string

const (
	// RetryDownstream re-runs the named step and every later step.
	RetryDownstream RetryScope = "downstream"

	// RetrySingle re-runs only the named step.
	RetrySingle RetryScope = "single"
)

// String returns the string representation of the RetryScope.
func (s RetryScope) String() string {
	return string(s)
}
