package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/francine/internal/francine/scheduler"
)

// Jobs live in the server process, so these commands talk to it.
func newScheduleCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "schedule [command]",
		Short: "Manage daily jobs on a running francine server",
	}
	cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "URL of the francine server (defaults to the configured address)")

	add := &cobra.Command{
		Use:   "add HH:MM COMMAND...",
		Short: "Run a shell command every day at a time of day",
		Long: `Schedule a shell command to run daily.

Examples:
  francine schedule add 07:30 ./backup.sh`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := scheduler.ParseTimeOfDay(args[0]); err != nil {
				return err
			}
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = cfg.GetURL()
			}
			client, err := newAPIClient(cfg, serverURL)
			if err != nil {
				return err
			}
			job, err := client.Schedule(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), job)
				return nil
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Job scheduled: '%s' to run daily at %s (job %s).\n", job.Command, job.TimeOfDay, job.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = cfg.GetURL()
			}
			client, err := newAPIClient(cfg, serverURL)
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), jobs)
				return nil
			}
			w := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(w, "No jobs scheduled.")
				return nil
			}
			for _, j := range jobs {
				fmt.Fprintf(w, "%s  %s  next %s  runs %d  %s\n", j.ID, j.TimeOfDay, j.NextRun.Local().Format(time.DateTime), j.Runs, j.Command)
				if j.LastError != "" {
					errorLabel.Fprintf(w, "    last error: %s\n", j.LastError)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
