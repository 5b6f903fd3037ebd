// Package schema provides the typed communication schema produced by the
// pipeline's schema stage, together with its strict parser, structural
// validation and canonical serialization.
//
// The communication schema is the single artifact that crosses from free
// LLM text into typed data. Everything downstream (agent files, repository
// scaffolding) reads it through this package.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: internal/generation, internal/store, internal/cli
package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// CommunicationSchema describes directory and file relationships of the
// generated project.
type CommunicationSchema struct {
	Version     string `json:"version"`
	ProjectName string `json:"project_name"`
	Description string `json:"description"`

	// GlobalCommunicationProtocols is kept opaque; only its presence is checked.
	GlobalCommunicationProtocols json.RawMessage `json:"global_communication_protocols"`

	// DirectoryStructure maps a directory path to its configuration.
	DirectoryStructure map[string]DirectoryConfig `json:"directory_structure"`

	// EventFlows maps a directory path to its ordered flows.
	EventFlows map[string][]EventFlow `json:"event_flows"`

	CommunicationMatrix json.RawMessage `json:"communication_matrix"`
	PlatformSpecific    json.RawMessage `json:"platform_specific"`
	ErrorPropagation    json.RawMessage `json:"error_propagation"`
}

// DirectoryConfig describes a single directory.
type DirectoryConfig struct {
	Criticality  int                        `json:"criticality"`
	Description  string                     `json:"description"`
	Files        map[string]FileConfig      `json:"files"`
	Directories  map[string]DirectoryConfig `json:"directories,omitempty"`
	ReceivesFrom []string                   `json:"receives_from,omitempty"`
	SendsTo      []string                   `json:"sends_to,omitempty"`
	Protocols    []string                   `json:"protocols,omitempty"`
}

// FileConfig describes a single file inside a directory.
type FileConfig struct {
	Criticality  int               `json:"criticality"`
	Type         string            `json:"type"`
	Purpose      string            `json:"purpose"`
	Dependencies []string          `json:"dependencies"`
	Communicates map[string]string `json:"communicates,omitempty"`
	Triggers     []string          `json:"triggers,omitempty"`
	Modifies     []string          `json:"modifies,omitempty"`
}

// EventFlow is one named flow listed for a directory.
type EventFlow struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MarshalJSON emits an empty object for a nil Files map so the output
// always parses back.
func (d DirectoryConfig) MarshalJSON() ([]byte, error) {
	type plain DirectoryConfig
	out := plain(d)
	if out.Files == nil {
		out.Files = map[string]FileConfig{}
	}
	return json.Marshal(out)
}

// MarshalJSON emits an empty list for nil Dependencies.
func (f FileConfig) MarshalJSON() ([]byte, error) {
	type plain FileConfig
	out := plain(f)
	if out.Dependencies == nil {
		out.Dependencies = []string{}
	}
	return json.Marshal(out)
}

// Directory is one entry of the flattened directory walk.
type Directory struct {
	// Path is the directory key; nested directories are joined as parent/child.
	Path   string
	Config DirectoryConfig
}

// Directories returns every directory, nested ones included, sorted by path.
func (s *CommunicationSchema) Directories() []Directory {
	if s == nil {
		return nil
	}
	var out []Directory
	var walk func(prefix string, dirs map[string]DirectoryConfig)
	walk = func(prefix string, dirs map[string]DirectoryConfig) {
		for name, cfg := range dirs {
			p := name
			if prefix != "" {
				p = JoinPath(prefix, name)
			}
			out = append(out, Directory{Path: p, Config: cfg})
			walk(p, cfg.Directories)
		}
	}
	walk("", s.DirectoryStructure)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// JoinPath joins a directory path and a child name with a single slash.
func JoinPath(dir, name string) string {
	dir = strings.TrimRight(dir, "/")
	name = strings.TrimLeft(name, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
