package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// wire types mirror the public types with pointer fields so a missing
// required field can be told apart from a zero value.
type wireSchema struct {
	Version                      *string                      `json:"version"`
	ProjectName                  *string                      `json:"project_name"`
	Description                  *string                      `json:"description"`
	GlobalCommunicationProtocols json.RawMessage              `json:"global_communication_protocols"`
	DirectoryStructure           map[string]*wireDirectory    `json:"directory_structure"`
	EventFlows                   *map[string][]*wireEventFlow `json:"event_flows"`
	CommunicationMatrix          json.RawMessage              `json:"communication_matrix"`
	PlatformSpecific             json.RawMessage              `json:"platform_specific"`
	ErrorPropagation             json.RawMessage              `json:"error_propagation"`
}

type wireDirectory struct {
	Criticality  *int                      `json:"criticality"`
	Description  *string                   `json:"description"`
	Files        map[string]*wireFile      `json:"files"`
	Directories  map[string]*wireDirectory `json:"directories"`
	ReceivesFrom []string                  `json:"receives_from"`
	SendsTo      []string                  `json:"sends_to"`
	Protocols    []string                  `json:"protocols"`
}

type wireFile struct {
	Criticality  *int              `json:"criticality"`
	Type         *string           `json:"type"`
	Purpose      *string           `json:"purpose"`
	Dependencies []string          `json:"dependencies"`
	Communicates map[string]string `json:"communicates"`
	Triggers     []string          `json:"triggers"`
	Modifies     []string          `json:"modifies"`
}

type wireEventFlow struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Parse decodes schema text into a CommunicationSchema and validates it.
//
// Surrounding whitespace and a single markdown code fence are stripped first.
// Malformed JSON, trailing data and missing required fields fail with
// errors.ErrParse; structural violations fail with errors.ErrValidation.
func Parse(text string) (*CommunicationSchema, error) {
	body := StripCodeFence(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty input", docerrors.ErrParse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var w wireSchema
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %w", docerrors.ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after schema object", docerrors.ErrParse)
	}

	s, err := w.convert()
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// StripCodeFence trims whitespace and removes one surrounding ``` fence,
// with or without a language tag.
func StripCodeFence(text string) string {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return body
	}
	inner := strings.TrimSpace(body[nl+1:])
	if !strings.HasSuffix(inner, "```") {
		return body
	}
	return strings.TrimSpace(strings.TrimSuffix(inner, "```"))
}

func missing(path string) error {
	return fmt.Errorf("%w: missing required field %q", docerrors.ErrParse, path)
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func compact(path string, raw json.RawMessage) (json.RawMessage, error) {
	if !present(raw) {
		return nil, missing(path)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", docerrors.ErrParse, path, err)
	}
	return buf.Bytes(), nil
}

func (w *wireSchema) convert() (*CommunicationSchema, error) {
	s := &CommunicationSchema{}
	var err error

	switch {
	case w.Version == nil:
		return nil, missing("version")
	case w.ProjectName == nil:
		return nil, missing("project_name")
	case w.Description == nil:
		return nil, missing("description")
	case w.DirectoryStructure == nil:
		return nil, missing("directory_structure")
	case w.EventFlows == nil:
		return nil, missing("event_flows")
	}
	s.Version = *w.Version
	s.ProjectName = *w.ProjectName
	s.Description = *w.Description

	if s.GlobalCommunicationProtocols, err = compact("global_communication_protocols", w.GlobalCommunicationProtocols); err != nil {
		return nil, err
	}
	if s.CommunicationMatrix, err = compact("communication_matrix", w.CommunicationMatrix); err != nil {
		return nil, err
	}
	if s.PlatformSpecific, err = compact("platform_specific", w.PlatformSpecific); err != nil {
		return nil, err
	}
	if s.ErrorPropagation, err = compact("error_propagation", w.ErrorPropagation); err != nil {
		return nil, err
	}

	if s.DirectoryStructure, err = convertDirectories("directory_structure", w.DirectoryStructure); err != nil {
		return nil, err
	}

	s.EventFlows = make(map[string][]EventFlow, len(*w.EventFlows))
	for dir, flows := range *w.EventFlows {
		converted := make([]EventFlow, 0, len(flows))
		for i, f := range flows {
			path := fmt.Sprintf("event_flows.%s[%d]", dir, i)
			if f == nil || f.Name == nil {
				return nil, missing(path + ".name")
			}
			flow := EventFlow{Name: *f.Name}
			if f.Description != nil {
				flow.Description = *f.Description
			}
			converted = append(converted, flow)
		}
		s.EventFlows[dir] = converted
	}
	return s, nil
}

func convertDirectories(path string, dirs map[string]*wireDirectory) (map[string]DirectoryConfig, error) {
	out := make(map[string]DirectoryConfig, len(dirs))
	for name, d := range dirs {
		p := path + "." + name
		if d == nil {
			return nil, missing(p)
		}
		cfg, err := d.convert(p)
		if err != nil {
			return nil, err
		}
		out[name] = cfg
	}
	return out, nil
}

func (d *wireDirectory) convert(path string) (DirectoryConfig, error) {
	switch {
	case d.Criticality == nil:
		return DirectoryConfig{}, missing(path + ".criticality")
	case d.Description == nil:
		return DirectoryConfig{}, missing(path + ".description")
	case d.Files == nil:
		return DirectoryConfig{}, missing(path + ".files")
	}

	cfg := DirectoryConfig{
		Criticality:  *d.Criticality,
		Description:  *d.Description,
		Files:        make(map[string]FileConfig, len(d.Files)),
		ReceivesFrom: nonEmpty(d.ReceivesFrom),
		SendsTo:      nonEmpty(d.SendsTo),
		Protocols:    nonEmpty(d.Protocols),
	}
	for name, f := range d.Files {
		fp := path + ".files." + name
		if f == nil {
			return DirectoryConfig{}, missing(fp)
		}
		fc, err := f.convert(fp)
		if err != nil {
			return DirectoryConfig{}, err
		}
		cfg.Files[name] = fc
	}
	if len(d.Directories) > 0 {
		nested, err := convertDirectories(path+".directories", d.Directories)
		if err != nil {
			return DirectoryConfig{}, err
		}
		cfg.Directories = nested
	}
	return cfg, nil
}

func (f *wireFile) convert(path string) (FileConfig, error) {
	switch {
	case f.Criticality == nil:
		return FileConfig{}, missing(path + ".criticality")
	case f.Type == nil:
		return FileConfig{}, missing(path + ".type")
	case f.Purpose == nil:
		return FileConfig{}, missing(path + ".purpose")
	case f.Dependencies == nil:
		return FileConfig{}, missing(path + ".dependencies")
	}

	fc := FileConfig{
		Criticality:  *f.Criticality,
		Type:         *f.Type,
		Purpose:      *f.Purpose,
		Dependencies: f.Dependencies,
		Triggers:     nonEmpty(f.Triggers),
		Modifies:     nonEmpty(f.Modifies),
	}
	if len(f.Communicates) > 0 {
		fc.Communicates = f.Communicates
	}
	return fc, nil
}

// nonEmpty maps an empty optional list to nil so that omitted and empty
// lists compare equal after a round trip.
func nonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}
