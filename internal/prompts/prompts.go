package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Render executes a prompt template with the provided data and returns the result.
//
// Example:
//
//	prompt, err := prompts.Render(prompts.Architecture, prompts.StageData{
//	    DevPlan: devPlan,
//	})
func Render(id PromptID, data any) (string, error) {
	if err := ValidateData(id, data); err != nil {
		return "", err
	}

	tmpl, err := globalRegistry.get(id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Join(ErrTemplateExecution, fmt.Errorf("prompt %s: %w", id, err))
	}

	return strings.TrimSpace(buf.String()), nil
}

// MustRender executes a prompt template and panics on error.
// Use this only with known-good data.
func MustRender(id PromptID, data any) string {
	result, err := Render(id, data)
	if err != nil {
		panic(fmt.Sprintf("prompts.MustRender(%s): %v", id, err))
	}
	return result
}

// List returns all registered prompt IDs in sorted order.
func List() []PromptID {
	ids := globalRegistry.list()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Exists checks if a prompt ID is registered.
func Exists(id PromptID) bool {
	_, err := globalRegistry.get(id)
	return err == nil
}

// GetTemplate returns the raw template source for a prompt ID.
func GetTemplate(id PromptID) (string, error) {
	return globalRegistry.getSource(id)
}

// ValidateData checks that stage prompts receive StageData. System prompts take no data.
func ValidateData(id PromptID, data any) error {
	if !strings.HasPrefix(string(id), "stages/") {
		return nil
	}
	switch data.(type) {
	case StageData, *StageData:
		return nil
	default:
		return fmt.Errorf("%w: expected StageData, got %T", ErrInvalidData, data)
	}
}
