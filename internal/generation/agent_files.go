package generation

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/schema"
)

// GenerateAgentFiles parses and validates the communication schema text and
// renders two identical files, README.md and AGENT.md, for every directory.
// Nested directories are included as parent/child and directories are
// processed in ascending path order. Path collisions are reported on the
// global logger.
func GenerateAgentFiles(schemaText string) ([]domain.AgentFile, error) {
	s, err := schema.Parse(schemaText)
	if err != nil {
		return nil, err
	}
	return agentFilesFor(s, log.Logger), nil
}

// agentFilesFor renders the agent files of an already validated schema.
// Keys that differ only by a trailing slash map to the same files; the
// first in path order wins and every dropped directory is logged.
func agentFilesFor(s *schema.CommunicationSchema, logger zerolog.Logger) []domain.AgentFile {
	dirs := s.Directories()
	files := make([]domain.AgentFile, 0, 2*len(dirs))
	owner := make(map[string]string, len(dirs))

	for _, dir := range dirs {
		readme := schema.JoinPath(dir.Path, constants.AgentReadmeFileName)
		if kept, ok := owner[readme]; ok {
			logger.Warn().
				Str("directory", dir.Path).
				Str("kept_directory", kept).
				Str("path", readme).
				Msg("directory collides with another on the same path, skipping it")
			continue
		}
		owner[readme] = dir.Path

		content := GenerateDirectoryDocs(dir.Path, dir.Config, s)
		files = append(files,
			domain.AgentFile{Path: readme, Content: content},
			domain.AgentFile{Path: schema.JoinPath(dir.Path, constants.AgentGuideFileName), Content: content},
		)
	}
	return files
}
