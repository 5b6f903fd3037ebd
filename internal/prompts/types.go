package prompts

// PromptID identifies a specific prompt template.
type PromptID string

// Stage prompt identifiers. Each LLM stage has a system prompt and a user prompt.
const (
	DevPlan             PromptID = "stages/dev_plan"
	Architecture        PromptID = "stages/architecture"
	Blueprint           PromptID = "stages/blueprint"
	Readme              PromptID = "stages/readme"
	DirectoryTree       PromptID = "stages/directory_tree"
	CommunicationSchema PromptID = "stages/communication_schema"

	SystemDevPlan       PromptID = "system/dev_plan"
	SystemArchitecture  PromptID = "system/architecture"
	SystemBlueprint     PromptID = "system/blueprint"
	SystemDirectoryTree PromptID = "system/directory_tree"
)

// StageData carries the caller prompt and every prior stage output a
// template may reference. Stages leave later fields empty.
type StageData struct {
	// Prompt is the caller's project idea.
	Prompt string
	// ProjectName is the project record's name.
	ProjectName string
	// DevPlan is the output of the dev plan stage.
	DevPlan string
	// Architecture is the output of the architecture stage.
	Architecture string
	// Blueprint is the output of the blueprint stage.
	Blueprint string
	// Readme is the output of the readme stage.
	Readme string
	// Tree is the output of the directory tree stage.
	Tree string
}
