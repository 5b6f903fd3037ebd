package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/schema"
)

// namedFile pairs a file name with its configuration.
type namedFile struct {
	Name   string
	Config schema.FileConfig
}

// fileRelationship is one entry of the File Relationships block.
type fileRelationship struct {
	DependsOn        []string `json:"depends_on"`
	CommunicatesWith []string `json:"communicates_with"`
	UsedBy           []string `json:"used_by"`
}

// GenerateDirectoryDocs renders the agent document for one directory.
//
// The output depends only on its inputs. Files are grouped into critical
// (9-10), important (7-8) and supporting (0-6) bands, each ordered by
// criticality descending and then by name. Map-valued fields are emitted
// in sorted key order.
func GenerateDirectoryDocs(path string, cfg schema.DirectoryConfig, s *schema.CommunicationSchema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - %s\nCriticality: %d/%d\n\n", path, cfg.Description, cfg.Criticality, constants.MaxCriticality)

	critical, important, supporting := bandFiles(sortedFiles(cfg.Files))

	b.WriteString("## Critical Files (Must maintain for system stability)\n")
	for _, f := range critical {
		fmt.Fprintf(&b, "### %s\n", f.Name)
		fmt.Fprintf(&b, "- **Criticality:** %d/%d\n", f.Config.Criticality, constants.MaxCriticality)
		fmt.Fprintf(&b, "- **Type:** %s\n", f.Config.Type)
		fmt.Fprintf(&b, "- **Purpose:** %s\n", f.Config.Purpose)
		b.WriteString("- **Communicates with:**\n")
		for _, target := range sortedKeys(f.Config.Communicates) {
			fmt.Fprintf(&b, "  - %s: %s\n", target, f.Config.Communicates[target])
		}
		if len(f.Config.Dependencies) > 0 {
			fmt.Fprintf(&b, "- **Dependencies:** %s\n", formatList(f.Config.Dependencies))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Important Files (Breaking these affects functionality)\n")
	writeSummaries(&b, important)

	if len(supporting) > 0 {
		b.WriteString("\n## Supporting Files (Can be modified with care)\n")
		writeSummaries(&b, supporting)
	}

	b.WriteString("\n## Communication Patterns\n")
	if len(cfg.ReceivesFrom) > 0 {
		fmt.Fprintf(&b, "- **Receives from:** %s\n", formatList(cfg.ReceivesFrom))
	}
	if len(cfg.SendsTo) > 0 {
		fmt.Fprintf(&b, "- **Sends to:** %s\n", formatList(cfg.SendsTo))
	}
	if len(cfg.Protocols) > 0 {
		fmt.Fprintf(&b, "- **Protocols:** %s\n", formatList(cfg.Protocols))
	}

	b.WriteString("\n## File Relationships\n```json\n")
	b.Write(relationshipsJSON(cfg.Files))
	b.WriteString("\n```\n")

	if s != nil {
		if flows, ok := s.EventFlows[path]; ok {
			b.WriteString("\n## Event Flows\n")
			for _, flow := range flows {
				fmt.Fprintf(&b, "- %s: %s\n", flow.Name, flow.Description)
			}
		}
	}

	return b.String()
}

func writeSummaries(b *strings.Builder, files []namedFile) {
	for _, f := range files {
		fmt.Fprintf(b, "- **%s** (Criticality: %d/%d): %s\n", f.Name, f.Config.Criticality, constants.MaxCriticality, f.Config.Purpose)
	}
}

// sortedFiles orders files by criticality descending, then name ascending.
func sortedFiles(files map[string]schema.FileConfig) []namedFile {
	out := make([]namedFile, 0, len(files))
	for name, cfg := range files {
		out = append(out, namedFile{Name: name, Config: cfg})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Config.Criticality != out[j].Config.Criticality {
			return out[i].Config.Criticality > out[j].Config.Criticality
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// bandFiles splits sorted files into the three disjoint bands, keeping order.
func bandFiles(files []namedFile) (critical, important, supporting []namedFile) {
	for _, f := range files {
		switch c := f.Config.Criticality; {
		case c >= constants.CriticalThreshold:
			critical = append(critical, f)
		case c >= constants.ImportantThreshold:
			important = append(important, f)
		default:
			supporting = append(supporting, f)
		}
	}
	return critical, important, supporting
}

// buildRelationships derives, for every file, its dependencies and
// communication targets that are siblings in the same directory, and the
// siblings that depend on it.
func buildRelationships(files map[string]schema.FileConfig) map[string]fileRelationship {
	rel := make(map[string]fileRelationship, len(files))
	usedBy := make(map[string][]string, len(files))

	for name, cfg := range files {
		var dependsOn []string
		for _, dep := range cfg.Dependencies {
			if _, sibling := files[dep]; sibling && dep != name {
				dependsOn = append(dependsOn, dep)
			}
		}
		dependsOn = uniqueSorted(dependsOn)
		for _, dep := range dependsOn {
			usedBy[dep] = append(usedBy[dep], name)
		}

		var talksTo []string
		for target := range cfg.Communicates {
			if _, sibling := files[target]; sibling && target != name {
				talksTo = append(talksTo, target)
			}
		}

		rel[name] = fileRelationship{
			DependsOn:        dependsOn,
			CommunicatesWith: uniqueSorted(talksTo),
		}
	}

	for name, entry := range rel {
		entry.UsedBy = uniqueSorted(usedBy[name])
		rel[name] = entry
	}
	return rel
}

// relationshipsJSON renders buildRelationships as indented JSON with
// sorted keys.
func relationshipsJSON(files map[string]schema.FileConfig) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Encoding plain strings and slices cannot fail.
	_ = enc.Encode(buildRelationships(files))
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := append([]string(nil), values...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatList renders values as ["a", "b"].
func formatList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
