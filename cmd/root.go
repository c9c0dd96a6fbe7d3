// Package cmd provides the command-line interface for srcserve with
// configuration management supporting multiple configuration sources.
//
// Configuration precedence, highest first:
//  1. Command-line flags (--config, --port, ...)
//  2. SRCSERVE_CONFIG_FILE environment variable - custom config file path
//  3. Individual environment variables (SRCSERVE_SERVER_PORT, ...)
//  4. Configuration file (.srcserve.yml)
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "srcserve",
	Short: "A development server for debuggable script serving",
	Long: `Srcserve serves JavaScript and TypeScript sources to debugging clients,
transpiling on demand with content-addressed caching, resolving module
imports, and pushing live reload notifications on file changes.

Quick Start:
  srcserve init                   Write a default .srcserve.yml
  srcserve serve                  Start the development server
  srcserve version                Print version information`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .srcserve.yml, can also use SRCSERVE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig wires viper to the config file and SRCSERVE_ environment
// variables. A missing config file is not an error; defaults apply.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SRCSERVE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".srcserve")
	}

	viper.SetEnvPrefix("SRCSERVE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
