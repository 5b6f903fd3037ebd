package domain

import "time"

// DocumentKind names a persisted generation artifact. Project ID plus kind
// uniquely identifies a document.
type DocumentKind string

// Persisted document kinds, one per text-producing stage.
const (
	DocumentDevPlan      DocumentKind = "dev_plan"
	DocumentArchitecture DocumentKind = "architecture"
	DocumentBlueprint    DocumentKind = "blueprint"
	DocumentReadme       DocumentKind = "readme"
	DocumentTree         DocumentKind = "tree"
	DocumentSchema       DocumentKind = "schema"
)

// DocumentKinds returns every persisted kind in pipeline order.
func DocumentKinds() []DocumentKind {
	return []DocumentKind{
		DocumentDevPlan,
		DocumentArchitecture,
		DocumentBlueprint,
		DocumentReadme,
		DocumentTree,
		DocumentSchema,
	}
}

// String returns the kind name.
func (k DocumentKind) String() string {
	return string(k)
}

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	for _, kind := range DocumentKinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// Document is one stage output stored for a project.
type Document struct {
	ProjectID string       `json:"project_id"`
	Kind      DocumentKind `json:"kind"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AgentFile is a rendered documentation artifact destined for the scaffolded repository.
type AgentFile struct {
	// Path is the repository-relative target, e.g. "src/README.md".
	Path string `json:"path"`

	// Content is the rendered markdown.
	Content string `json:"content"`
}
