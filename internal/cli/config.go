package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/config"
)

// MorphServer turns host:port into a URL. francine serves plain HTTP, so
// http is assumed when no scheme is given.
func MorphServer(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		return server
	}
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	return server
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the francine configuration file",
		Long:  `Create the configuration file or print the effective configuration.`,
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration file",
		Long: `Write a commented default configuration file to the --config path, or to
~/FrancineData/francine.toml. Existing files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := os.Remove(configFile); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("removing existing config: %w", err)
				}
			}
			if err := config.WriteDefault(configFile); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"config_file": configFile})
				return nil
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Config file written: %s\n", configFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and environment overrides. Secrets
are never printed, only whether they are set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			source := "defaults"
			if err := config.LoadConfig(configFile); err == nil {
				cfg, source = config.Config(), configFile
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if dataDir != "" {
				cfg.Data.Dir = dataDir
			}
			secrets := map[string]bool{
				"llm_api_key":           cfg.LLM.APIKey != "",
				"francine_api_secret":   cfg.Server.APISecret != "",
				"francine_audit_secret": cfg.Audit.SigningSecret != "",
				"shopify_access_token":  cfg.Tools.Shopify.AccessToken != "",
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"source": source, "config": cfg, "secrets": secrets})
				return nil
			}
			return writeConfig(cmd.OutOrStdout(), source, cfg, secrets)
		},
	}
}

func writeConfig(w io.Writer, source string, cfg *config.ConfigParam, secrets map[string]bool) error {
	fmt.Fprintf(w, "# source: %s\n", source)
	for _, name := range []string{"llm_api_key", "francine_api_secret", "francine_audit_secret", "shopify_access_token"} {
		state := "unset"
		if secrets[name] {
			state = "set"
		}
		fmt.Fprintf(w, "# %s: %s\n", name, state)
	}
	return toml.NewEncoder(w).Encode(cfg)
}
