package cli

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/audit"
	"github.com/tansive/francine/internal/francine/memory"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [command]",
		Short: "Inspect and verify the signed interaction log",
		Long: `Commands for the tamper-evident interaction log written when [audit] is enabled.

Available Commands:
  verify    Verify the hash chain and signatures of a log
  export    Write a compressed copy of the log
  show      Print the logged interactions by session`,
	}
	cmd.AddCommand(newAuditVerifyCmd(), newAuditExportCmd(), newAuditShowCmd())
	return cmd
}

// auditLogPath returns args[0] or the log inside the configured data dir.
func auditLogPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadedConfig()
	if err != nil {
		return "", err
	}
	return cfg.DataPath(memory.AuditDir, AuditLogFile), nil
}

func newAuditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [LOG_FILE]",
		Short: "Verify the integrity of a log or export",
		Long: `Verify the integrity of a log by checking its hash chain and the Ed25519
signature of every entry. Compressed exports are detected automatically.
The verification key is derived from the configured signing secret.

Examples:
  francine audit verify
  francine audit verify ./interactions.tlog.sz -j`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditLogPath(args)
			if err != nil {
				return err
			}
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			key, err := audit.LoadKey(cfg.DataPath(memory.AuditDir), cfg.Audit.SigningSecret)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()

			n, verr := audit.Verify(f, key.Public().(ed25519.PublicKey))
			if jsonOutput {
				out := map[string]any{"result": 1, "value": map[string]any{"status": "success", "file": path, "entries": n}}
				if verr != nil {
					out = map[string]any{"result": 0, "error": verr.Error(), "valid_entries": n}
				}
				printJSON(cmd.OutOrStdout(), out)
				if verr != nil {
					return ErrAlreadyHandled
				}
				return nil
			}
			if verr != nil {
				return fmt.Errorf("log verification failed after %d valid entries: %w", n, verr)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Log verification successful: %d entries\n", n)
			return nil
		},
	}
}

func newAuditExportCmd() *cobra.Command {
	var src string
	cmd := &cobra.Command{
		Use:   "export DEST",
		Short: "Write a snappy-compressed copy of the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if src == "" {
				var err error
				if src, err = auditLogPath(nil); err != nil {
					return err
				}
			}
			if err := audit.Export(src, args[0]); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"source": src, "export": args[0]})
				return nil
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", src, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "log", "", "Log file to export (defaults to the configured audit log)")
	return cmd
}

func newAuditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [LOG_FILE]",
		Short: "Print the logged interactions grouped by session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditLogPath(args)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()
			p := newLogPrinter(cmd.OutOrStdout())
			sc := bufio.NewScanner(f)
			sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			for sc.Scan() {
				if len(sc.Bytes()) == 0 {
					continue
				}
				p.PrintLine(sc.Bytes())
			}
			return sc.Err()
		},
	}
}
