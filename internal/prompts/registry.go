package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
)

//go:embed templates
var templateFS embed.FS

const (
	templateRoot = "templates"
	commonDir    = "common"
	templateExt  = ".tmpl"
)

// registry is built once at package init and never mutated afterwards,
// so lookups need no locking.
type registry struct {
	templates map[PromptID]*template.Template
	sources   map[PromptID]string
}

//nolint:gochecknoglobals // Immutable after init
var globalRegistry = mustLoadRegistry(templateFS)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"hasContent": func(s string) bool {
			return strings.TrimSpace(s) != ""
		},
		"trim": strings.TrimSpace,
		// section feeds common/section a heading and a prior stage output.
		"section": func(title, body string) map[string]string {
			return map[string]string{"Title": title, "Body": body}
		},
	}
}

func mustLoadRegistry(fsys fs.FS) *registry {
	r, err := loadRegistry(fsys)
	if err != nil {
		// The templates are embedded; a failure here is a build defect.
		panic(fmt.Sprintf("failed to load embedded templates: %v", err))
	}
	return r
}

// loadRegistry parses templates/common/*.tmpl into a shared base and every
// other template on a clone of it. A file templates/stages/readme.tmpl
// becomes prompt "stages/readme"; common/x.tmpl is invoked as
// {{template "common/x" .}}.
func loadRegistry(fsys fs.FS) (*registry, error) {
	base := template.New("base").Funcs(funcMap())
	r := &registry{
		templates: make(map[PromptID]*template.Template),
		sources:   make(map[PromptID]string),
	}

	files := make(map[PromptID]string)
	err := fs.WalkDir(fsys, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != templateExt {
			return err
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(p, templateRoot+"/"), templateExt)
		if path.Dir(id) == commonDir {
			if _, err := base.New(id).Parse(string(content)); err != nil {
				return fmt.Errorf("parsing common template %s: %w", p, err)
			}
			return nil
		}
		files[PromptID(id)] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id, content := range files {
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", id, err)
		}
		tmpl, err := set.New(string(id)).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", id, err)
		}
		r.templates[id] = tmpl
		r.sources[id] = content
	}
	return r, nil
}

func (r *registry) get(id PromptID) (*template.Template, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tmpl, nil
}

func (r *registry) getSource(id PromptID) (string, error) {
	source, ok := r.sources[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return source, nil
}

func (r *registry) list() []PromptID {
	ids := make([]PromptID, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}
