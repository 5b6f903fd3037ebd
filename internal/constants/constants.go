// Package constants provides centralized constant values used throughout docgen.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by docgen for organizing data.
const (
	// DocgenHome is the hidden directory name where docgen stores its data.
	// This directory is created in the user's home directory.
	DocgenHome = ".docgen"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// DatabaseFileName is the default SQLite database file inside DocgenHome.
	DatabaseFileName = "docgen.db"
)

// Repository scaffolding defaults.
const (
	// DefaultBatchSize is the number of files committed per batch.
	DefaultBatchSize = 10

	// DefaultCommitInterval is the minimum spacing between two file commits.
	DefaultCommitInterval = 100 * time.Millisecond

	// DefaultBranch is the branch files are committed to.
	DefaultBranch = "main"

	// CommitMessagePrefix prefixes the commit message of every scaffolded file.
	CommitMessagePrefix = "Add "
)

// Timeout configurations for various operations.
const (
	// DefaultStageTimeout bounds a single pipeline stage, including its provider call.
	DefaultStageTimeout = 5 * time.Minute

	// DefaultHTTPTimeout is the transport timeout for provider HTTP clients.
	DefaultHTTPTimeout = 3 * time.Minute

	// DefaultQueuePollTimeout is how long a worker blocks waiting for a queued job
	// before re-checking its context.
	DefaultQueuePollTimeout = 5 * time.Second
)

// Worker pool defaults.
const (
	// DefaultWorkers is the number of concurrent generation workers.
	DefaultWorkers = 2

	// DefaultQueueKey is the Redis list that holds queued job ids.
	DefaultQueueKey = "docgen:jobs"

	// DefaultQueueCapacity is the buffer size of the in-memory queue.
	DefaultQueueCapacity = 64
)

// Criticality bands used when rendering directory documentation.
const (
	// MaxCriticality is the upper bound of a criticality score.
	MaxCriticality = 10

	// CriticalThreshold is the lowest score of the critical band.
	CriticalThreshold = 9

	// ImportantThreshold is the lowest score of the important band.
	ImportantThreshold = 7
)

// Agent file names emitted for every schema directory.
const (
	// AgentReadmeFileName is the per-directory README document.
	AgentReadmeFileName = "README.md"

	// AgentGuideFileName is the per-directory agent guide, identical to the README.
	AgentGuideFileName = "AGENT.md"
)

// Schema version constants for data migration support.
const (
	// JobSchemaVersion is the current version of the persisted job record.
	JobSchemaVersion = "1.0"
)
