package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/logging"
)

func addConfigCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Long: `Print the configuration after defaults, config files and DOCGEN_*
environment variables are merged. Credentials embedded in the database DSN
or Redis URL are masked; API tokens are never stored in the configuration,
only the names of the environment variables that hold them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.OutOrStdout(), a.flags.Output, a.cfg)
		},
	}

	cmd.AddCommand(show)
	root.AddCommand(cmd)
}

func runConfigShow(w io.Writer, output string, cfg *config.Config) error {
	masked := maskConfig(cfg)
	if output == OutputJSON {
		return writeJSON(w, masked)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(masked); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// maskConfig returns a copy of cfg with connection-string passwords masked.
func maskConfig(cfg *config.Config) config.Config {
	masked := *cfg
	masked.Database.DSN = logging.SafeValue("dsn", cfg.Database.DSN)
	masked.Queue.RedisURL = logging.SafeValue("redis_url", cfg.Queue.RedisURL)
	return masked
}
