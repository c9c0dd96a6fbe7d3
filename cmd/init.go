package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/srcserve/srcserve/internal/config"
)

const configFileName = ".srcserve.yml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a default ` + configFileName + ` to the current directory.
Use --force to overwrite an existing file.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(configFileName); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", configFileName)
	}

	defaults := config.Config{
		Server: config.ServerConfig{
			Port:        8080,
			Host:        "localhost",
			Environment: "development",
		},
		Scripts: config.ScriptsConfig{
			BaseFolder:            ".",
			FileEndings:           []string{".js", ".ts"},
			MaxTranspileCacheSize: config.DefaultTranspileCacheBytes,
			MaxAnalyzeCacheSize:   config.DefaultAnalyzeCacheBytes,
		},
		Development: config.DevelopmentConfig{
			LiveReload:     true,
			DebounceMillis: 100,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	data, err := yaml.Marshal(&defaults)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(configFileName, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configFileName, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", configFileName)
	return nil
}
