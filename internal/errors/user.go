package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice (not a map) because order matters for errors.Is() traversal:
// more specific sentinels come first.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	// ===================
	// Pipeline
	// ===================
	{
		err: ErrProvider,
		info: ErrorInfo{
			Message: "A text-generation provider call failed.",
			Action:  "Check the provider API key and network access, then run 'docgen retry <job> <step>'.",
		},
	},
	{
		err: ErrParse,
		info: ErrorInfo{
			Message: "The communication schema is not valid JSON or is missing required fields.",
			Action:  "Retry the communication_schema step to regenerate it.",
		},
	},
	{
		err: ErrValidation,
		info: ErrorInfo{
			Message: "The communication schema failed structural validation.",
			Action:  "Retry the communication_schema step; every criticality must be 0-10 and at least one directory is required.",
		},
	},
	{
		err: ErrPersistence,
		info: ErrorInfo{
			Message: "The document store is unavailable.",
			Action:  "Check the database.dsn setting and database health.",
		},
	},
	{
		err: ErrRemoteService,
		info: ErrorInfo{
			Message: "The repository host rejected the request.",
			Action:  "Check the GitHub token, repository name collisions and rate limits.",
		},
	},

	// ===================
	// Lifecycle
	// ===================
	{
		err: ErrGenerationInProgress,
		info: ErrorInfo{
			Message: "A generation job is already running for this project.",
			Action:  "Wait for it to finish or cancel it with 'docgen cancel <job>'.",
		},
	},
	{
		err: ErrProjectNotFound,
		info: ErrorInfo{
			Message: "The project does not exist.",
			Action:  "List projects with 'docgen project list'.",
		},
	},
	{
		err: ErrJobNotFound,
		info: ErrorInfo{
			Message: "The generation job does not exist.",
			Action:  "Check job ids with 'docgen status <project>'.",
		},
	},
	{
		err: ErrDocumentNotFound,
		info: ErrorInfo{
			Message: "A prerequisite document has not been generated yet.",
			Action:  "Retry from an earlier step.",
		},
	},
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "The job is not in a state that allows this operation.",
		},
	},
	{
		err: ErrInvalidStep,
		info: ErrorInfo{
			Message: "Unknown generation step.",
			Action:  "Use one of: dev_plan, architecture, blueprint, readme, directory_tree, communication_schema, agent_files, github_scaffold.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrMissingCredential,
		info: ErrorInfo{
			Message: "A required API token is not set.",
			Action:  "Export the environment variable named in providers.*.api_key_env or github.token_env.",
		},
	},
	{
		err: ErrConfigInvalid,
		info: ErrorInfo{
			Message: "The configuration is invalid.",
			Action:  "Run 'docgen config show' and fix the reported setting.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error using errors.Is()
// traversal. Returns an ErrorInfo with the original message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is no clear remedy.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
