package domain

import (
	"fmt"
	"strings"

	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// GenerationStep identifies one of the eight fixed pipeline stages.
type GenerationStep string

// Pipeline stages in execution order.
const (
	StepDevPlan             GenerationStep = "dev_plan"
	StepArchitecture        GenerationStep = "architecture"
	StepBlueprint           GenerationStep = "blueprint"
	StepReadme              GenerationStep = "readme"
	StepDirectoryTree       GenerationStep = "directory_tree"
	StepCommunicationSchema GenerationStep = "communication_schema"
	StepAgentFiles          GenerationStep = "agent_files"
	StepGitHubScaffold      GenerationStep = "github_scaffold"
)

//nolint:gochecknoglobals // Read-only ordering table
var stepOrder = []GenerationStep{
	StepDevPlan,
	StepArchitecture,
	StepBlueprint,
	StepReadme,
	StepDirectoryTree,
	StepCommunicationSchema,
	StepAgentFiles,
	StepGitHubScaffold,
}

//nolint:gochecknoglobals // Read-only lookup table
var stepDisplayNames = map[GenerationStep]string{
	StepDevPlan:             "DevPlan",
	StepArchitecture:        "Architecture",
	StepBlueprint:           "Blueprint",
	StepReadme:              "Readme",
	StepDirectoryTree:       "DirectoryTree",
	StepCommunicationSchema: "CommunicationSchema",
	StepAgentFiles:          "AgentFiles",
	StepGitHubScaffold:      "GitHubScaffold",
}

//nolint:gochecknoglobals // Read-only lookup table
var stepDocuments = map[GenerationStep]DocumentKind{
	StepDevPlan:             DocumentDevPlan,
	StepArchitecture:        DocumentArchitecture,
	StepBlueprint:           DocumentBlueprint,
	StepReadme:              DocumentReadme,
	StepDirectoryTree:       DocumentTree,
	StepCommunicationSchema: DocumentSchema,
}

// Steps returns the pipeline stages in execution order.
func Steps() []GenerationStep {
	out := make([]GenerationStep, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// String returns the snake_case step name.
func (s GenerationStep) String() string {
	return string(s)
}

// DisplayName returns the human name used in failure reasons ("Architecture").
func (s GenerationStep) DisplayName() string {
	if name, ok := stepDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// Index returns the zero-based position of the step, or -1 if unknown.
func (s GenerationStep) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the pipeline stages.
func (s GenerationStep) Valid() bool {
	return s.Index() >= 0
}

// Document returns the document kind the stage persists, if any.
func (s GenerationStep) Document() (DocumentKind, bool) {
	kind, ok := stepDocuments[s]
	return kind, ok
}

// Next returns the following stage, or false after the last one.
func (s GenerationStep) Next() (GenerationStep, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stepOrder) {
		return "", false
	}
	return stepOrder[i+1], true
}

// ParseStep resolves a step from its snake_case or display name, case-insensitively.
func ParseStep(value string) (GenerationStep, error) {
	v := strings.TrimSpace(value)
	for _, step := range stepOrder {
		if strings.EqualFold(v, string(step)) || strings.EqualFold(v, stepDisplayNames[step]) {
			return step, nil
		}
	}
	return "", fmt.Errorf("%w: %q", docerrors.ErrInvalidStep, value)
}
