// Package cli implements the francine command line: an interactive chat,
// one-shot prompts, the HTTP server and maintenance commands for memory,
// retrieval, the constitution and the audit log.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/francinecommon"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	dataDir    string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// commands that must run without a loaded configuration
var configFreeCommands = map[string]bool{"config": true, "version": true}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "francine [command] [flags]",
		Short: "Francine - a personal assistant agent with tools",
		Long: `Francine is a personal assistant that answers prompts directly or by calling
tools: OSINT lookups, e-commerce research, a sandboxed file manager, document
retrieval and scheduled jobs. Failed tool calls are reflected on and retried.

Examples:
  # Start an interactive chat
  francine chat

  # Ask a single question
  francine ask "what is the profit on 100 revenue, 40 cogs, 10 ship, 5 ads?"

  # Serve the HTTP API and MCP endpoint
  francine serve`,
		PersistentPreRunE: preRunHandlePersistents,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true, // Prevent Cobra from printing the error
		SilenceUsage:  true, // Prevent Cobra from printing usage on error
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "", "", "Data directory to override the configured one")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(
		newChatCmd(),
		newAskCmd(),
		newFeedbackCmd(),
		newServeCmd(),
		newToolsCmd(),
		newScheduleCmd(),
		newReflectCmd(),
		newIndexCmd(),
		newConstitutionCmd(),
		newAuditCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line. Errors are printed before they are returned.
func Execute(ctx context.Context) error {
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrAlreadyHandled) {
		if jsonOutput {
			printJSON(rootCmd.OutOrStdout(), map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}

// GetDefaultConfigPath returns <home>/FrancineData/francine.toml.
func GetDefaultConfigPath() (string, error) {
	if p := os.Getenv("FRANCINE_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "FrancineData", francinecommon.DefaultConfigFile), nil
}

// preRunHandlePersistents loads .env and the configuration, then sets up
// logging. A missing config file falls back to the defaults.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			return err
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if configFreeCommands[c.Name()] {
			francinecommon.InitLogger()
			return nil
		}
	}

	if err := config.LoadConfig(configFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		config.SetConfig(config.Default())
	}
	cfg := config.Config()
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	francinecommon.InitLogger(francinecommon.LogOptions{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
	})
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of francine",
		Run: func(cmd *cobra.Command, args []string) {
			configPath, err := GetDefaultConfigPath()
			if err != nil {
				configPath = "unknown"
			}
			if configFile != "" {
				configPath = configFile
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":     getCLIVersion(),
					"config_file": configPath,
				})
				return
			}
			cmd.Printf("francine %s\n", getCLIVersion())
			cmd.Printf("Config file: %s\n", configPath)
		},
	}
}

// printJSON prints data as indented JSON to w.
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

func getCLIVersion() string {
	return "v0.1.0"
}

// loadedConfig returns the configuration installed by the pre-run hook.
func loadedConfig() (*config.ConfigParam, error) {
	cfg := config.Config()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
