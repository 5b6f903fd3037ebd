package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// Serialize renders the schema as canonical indented JSON. Map keys are
// emitted in sorted order, so equal schemas always serialize identically.
//
// Serialize first brings s into canonical form in place (see Normalize), so
// Parse(Serialize(s)) is structurally equal to s for any valid schema.
func Serialize(s *CommunicationSchema) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: schema is nil", docerrors.ErrValidation)
	}
	if err := s.Normalize(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("serialize schema: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Normalize rewrites s into the form Parse produces:
//   - required maps and lists are non-nil, possibly empty
//   - optional lists and maps are nil when empty
//   - opaque sections are compact JSON
//
// A schema returned by Parse is already normalized.
func (s *CommunicationSchema) Normalize() error {
	if s == nil {
		return fmt.Errorf("%w: schema is nil", docerrors.ErrValidation)
	}

	sections := []struct {
		name string
		raw  *json.RawMessage
	}{
		{"global_communication_protocols", &s.GlobalCommunicationProtocols},
		{"communication_matrix", &s.CommunicationMatrix},
		{"platform_specific", &s.PlatformSpecific},
		{"error_propagation", &s.ErrorPropagation},
	}
	for _, sec := range sections {
		if len(*sec.raw) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, *sec.raw); err != nil {
			return fmt.Errorf("%w: %s: %w", docerrors.ErrValidation, sec.name, err)
		}
		*sec.raw = buf.Bytes()
	}

	if s.DirectoryStructure == nil {
		s.DirectoryStructure = map[string]DirectoryConfig{}
	}
	normalizeDirectories(s.DirectoryStructure)

	if s.EventFlows == nil {
		s.EventFlows = map[string][]EventFlow{}
	}
	for dir, flows := range s.EventFlows {
		if flows == nil {
			s.EventFlows[dir] = []EventFlow{}
		}
	}
	return nil
}

func normalizeDirectories(dirs map[string]DirectoryConfig) {
	for name, d := range dirs {
		if d.Files == nil {
			d.Files = map[string]FileConfig{}
		}
		for fname, f := range d.Files {
			if f.Dependencies == nil {
				f.Dependencies = []string{}
			}
			if len(f.Communicates) == 0 {
				f.Communicates = nil
			}
			f.Triggers = nonEmpty(f.Triggers)
			f.Modifies = nonEmpty(f.Modifies)
			d.Files[fname] = f
		}
		if len(d.Directories) == 0 {
			d.Directories = nil
		} else {
			normalizeDirectories(d.Directories)
		}
		d.ReceivesFrom = nonEmpty(d.ReceivesFrom)
		d.SendsTo = nonEmpty(d.SendsTo)
		d.Protocols = nonEmpty(d.Protocols)
		dirs[name] = d
	}
}
