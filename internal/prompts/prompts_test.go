package prompts

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

// TestRenderStages checks that every stage prompt carries the prior outputs it depends on.
func TestRenderStages(t *testing.T) {
	data := StageData{
		Prompt:       "build a todo app",
		ProjectName:  "todo",
		DevPlan:      "PLAN-TEXT",
		Architecture: "ARCH-TEXT",
		Blueprint:    "BLUEPRINT-TEXT",
		Readme:       "README-TEXT",
		Tree:         "TREE-TEXT",
	}

	tests := []struct {
		id          PromptID
		contains    []string
		notContains []string
	}{
		{DevPlan, []string{"build a todo app", `"todo"`, "Format as markdown"}, []string{"PLAN-TEXT"}},
		{Architecture, []string{"PLAN-TEXT", "scaling considerations"}, []string{"ARCH-TEXT"}},
		{Blueprint, []string{"Development Plan:\nPLAN-TEXT", "Architecture:\nARCH-TEXT", "blueprint.json"}, []string{"TREE-TEXT"}},
		{Readme, []string{"PLAN-TEXT", "ARCH-TEXT", "BLUEPRINT-TEXT", "mermaid"}, []string{"TREE-TEXT"}},
		{DirectoryTree, []string{"BLUEPRINT-TEXT"}, []string{"PLAN-TEXT", "ARCH-TEXT"}},
		{CommunicationSchema, []string{"PLAN-TEXT", "ARCH-TEXT", "BLUEPRINT-TEXT", "Directory Tree:\nTREE-TEXT", `"directory_structure"`}, []string{"README-TEXT"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			got, err := Render(tt.id, data)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() output missing %q\nGot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("Render() output unexpectedly contains %q", unwanted)
				}
			}
		})
	}
}

// TestRenderDevPlan_NoProjectName omits the name line when the name is blank.
func TestRenderDevPlan_NoProjectName(t *testing.T) {
	got := MustRender(DevPlan, StageData{Prompt: "x"})
	if strings.Contains(got, "The project is called") {
		t.Errorf("unexpected project name line:\n%s", got)
	}
}

// TestRenderSystemPrompts checks the system prompts render without data.
func TestRenderSystemPrompts(t *testing.T) {
	for _, id := range []PromptID{SystemDevPlan, SystemArchitecture, SystemBlueprint, SystemDirectoryTree} {
		got, err := Render(id, nil)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", id, err)
		}
		if got == "" || strings.HasSuffix(got, "\n") {
			t.Errorf("Render(%s) = %q, want trimmed non-empty text", id, got)
		}
	}
}

// TestRenderInvalidData rejects stage prompts rendered with the wrong data type.
func TestRenderInvalidData(t *testing.T) {
	_, err := Render(Architecture, map[string]string{"DevPlan": "x"})
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("Render() error = %v, want ErrInvalidData", err)
	}

	if _, err := Render(Architecture, &StageData{DevPlan: "x"}); err != nil {
		t.Errorf("Render() with pointer data error = %v", err)
	}
}

// TestRenderNotFound tests rendering a non-existent template.
func TestRenderNotFound(t *testing.T) {
	_, err := Render("nonexistent/template", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Render() error = %v, want ErrTemplateNotFound", err)
	}
}

// TestMustRenderPanic tests that MustRender panics on error.
func TestMustRenderPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRender() did not panic for non-existent template")
		}
	}()

	MustRender("nonexistent/template", nil)
}

// TestList tests listing all prompt IDs.
func TestList(t *testing.T) {
	ids := List()
	if len(ids) != 10 {
		t.Fatalf("List() returned %d ids, want 10: %v", len(ids), ids)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("List() not sorted at %d: %v", i, ids)
		}
	}
	if !Exists(CommunicationSchema) || Exists("common/section") {
		t.Error("Exists() should report stage prompts and skip common partials")
	}
}

// TestGetTemplate returns the raw source.
func TestGetTemplate(t *testing.T) {
	src, err := GetTemplate(Readme)
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if !strings.Contains(src, `template "common/section"`) {
		t.Errorf("GetTemplate() = %q", src)
	}
}

func TestLoadRegistry_SharesCommonTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/common/greet.tmpl": {Data: []byte(`hello {{.}}`)},
		"templates/stages/one.tmpl":   {Data: []byte(`{{template "common/greet" "one"}}`)},
		"templates/stages/two.tmpl":   {Data: []byte(`{{template "common/greet" "two"}}`)},
	}
	r, err := loadRegistry(fsys)
	if err != nil {
		t.Fatalf("loadRegistry() error = %v", err)
	}
	if got := len(r.list()); got != 2 {
		t.Fatalf("list() = %d ids, want 2 (common templates are not prompts)", got)
	}

	tmpl, err := r.get("stages/two")
	if err != nil {
		t.Fatalf("get() error = %v", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if b.String() != "hello two" {
		t.Errorf("Execute() = %q, want %q", b.String(), "hello two")
	}
}

func TestLoadRegistry_ParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/stages/broken.tmpl": {Data: []byte(`{{.Prompt`)},
	}
	if _, err := loadRegistry(fsys); err == nil {
		t.Fatal("loadRegistry() expected a parse error")
	}
}
