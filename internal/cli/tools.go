package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/tansive/francine/internal/francine/tools"
	"github.com/tansive/francine/pkg/api"
)

func newToolsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools Francine can call",
		Long: `List the registered tools grouped by family.

Examples:
  francine tools
  francine tools -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, AppOptions{})
			if err != nil {
				return err
			}
			defer app.Close()
			list := describeTools(app.Registry)

			if jsonOutput {
				output = "json"
			}
			w := cmd.OutOrStdout()
			switch output {
			case "json":
				printJSON(w, list)
			case "yaml":
				return printToolsYAML(w, list)
			case "", "text":
				printToolsText(w, list)
			default:
				return fmt.Errorf("unsupported output format %q, use text, json or yaml", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json or yaml")
	return cmd
}

func describeTools(registry *tools.Registry) []api.Tool {
	var list []api.Tool
	for _, name := range registry.Names() {
		tool, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		list = append(list, api.Tool{
			Name:        tool.Spec.Name,
			Description: tool.Spec.Description,
			Parameters:  tool.Spec.Parameters,
			Family:      string(tool.Family),
			Blocking:    tool.Blocking,
		})
	}
	return list
}

// yamlTool renders parameters as a YAML mapping rather than a JSON string.
type yamlTool struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Family      string         `yaml:"family,omitempty"`
	Blocking    bool           `yaml:"blocking,omitempty"`
	Parameters  map[string]any `yaml:"parameters"`
}

func printToolsYAML(w io.Writer, list []api.Tool) error {
	out := make([]yamlTool, 0, len(list))
	for _, t := range list {
		var params map[string]any
		if err := yaml.Unmarshal(t.Parameters, &params); err != nil {
			return fmt.Errorf("tool %s has invalid parameters: %w", t.Name, err)
		}
		out = append(out, yamlTool{
			Name:        t.Name,
			Description: t.Description,
			Family:      t.Family,
			Blocking:    t.Blocking,
			Parameters:  params,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func printToolsText(w io.Writer, list []api.Tool) {
	title := cases.Title(language.English)
	groups := map[string][]api.Tool{}
	for _, t := range list {
		family := t.Family
		if family == "" {
			family = "general"
		}
		groups[family] = append(groups[family], t)
	}
	families := make([]string, 0, len(groups))
	for f := range groups {
		families = append(families, f)
	}
	sort.Strings(families)
	for _, f := range families {
		okLabel.Fprintf(w, "%s\n", title.String(strings.ReplaceAll(f, "_", " ")))
		for _, t := range groups[f] {
			fmt.Fprintf(w, "  %-26s %s\n", t.Name, t.Description)
		}
	}
}
