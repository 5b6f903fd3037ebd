package constants

// Log file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.docgen/logs/docgen.log
	CLILogFileName = "docgen.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global docgen configuration file.
	// This file is located in the docgen home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigDir is the directory holding the project-specific configuration.
	ProjectConfigDir = ".docgen"

	// ProjectConfigName is the name of the project-specific configuration file.
	ProjectConfigName = "config.yaml"
)

// Environment.
const (
	// EnvPrefix prefixes every environment override (DOCGEN_DATABASE_DSN).
	EnvPrefix = "DOCGEN"
)
