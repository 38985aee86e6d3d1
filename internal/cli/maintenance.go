package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/evolution"
	"github.com/tansive/francine/internal/francine/memory"
	"github.com/tansive/francine/internal/francine/rag"
)

func newReflectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Distil recent interactions into core memory",
		Args:  cobra.NoArgs,
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
			insights, err := evolution.ReflectOnMemory(cmd.Context(), app.Backend.Client, app.Store)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"added": insights})
				return nil
			}
			w := cmd.OutOrStdout()
			if len(insights) == 0 {
				fmt.Fprintln(w, "No new insights.")
				return nil
			}
			okLabel.Fprintf(w, "Added %d insight(s) to core memory:\n", len(insights))
			for _, in := range insights {
				fmt.Fprintf(w, "  - %s\n", in)
			}
			return nil
		},
	}
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [command]",
		Short: "Manage the retrieval index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Rebuild the retrieval index from documents, the constitution and memory",
		Args:  cobra.NoArgs,
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
			if app.Index == nil {
				return fmt.Errorf("retrieval is disabled, set [rag] enabled = true")
			}
			chunks := rag.CollectChunks(app.Store, cfg.RAG.DocsDir)
			n, err := app.Index.Build(cmd.Context(), chunks)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]int{"collected": len(chunks), "indexed": n})
				return nil
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d chunks into %s\n", n, len(chunks), app.Store.Path(memory.RAGDBFile))
			return nil
		},
	})
	return cmd
}

func newConstitutionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constitution [command]",
		Short: "Show or extend the principles Francine follows",
	}
	open := func() (*evolution.Constitution, error) {
		cfg, err := loadedConfig()
		if err != nil {
			return nil, err
		}
		store, err := memory.NewStore(cfg.Data.Dir)
		if err != nil {
			return nil, err
		}
		c := evolution.NewConstitution(store)
		if err := c.EnsureDefault(); err != nil {
			return nil, err
		}
		return c, nil
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the constitution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			text, err := c.Text()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add RULE...",
		Short: "Append a rule to the constitution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.UpdateMessage(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	})
	return cmd
}
