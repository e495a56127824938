package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/dupsweep/internal/workflow"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Cluster all open issues and remediate duplicates per the profile",
	Long: `Fetch every open issue, group near-duplicates, and apply the profile's
remediation. With a profile that does not auto-close (or with --dry-run) the
planned actions are only recorded in the report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, workflow.Invocation{})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <issue>",
	Short: "Rank open issues that look like duplicates of one issue",
	Long:  `Compare a single issue against the open issues and report the closest candidates. Never modifies the tracker.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := parseIssueNumber(args[0])
		if err != nil {
			return err
		}
		return runWorkflow(cmd, workflow.Invocation{Issue: issue})
	},
}

var scheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Run the periodic sweep over recent issues",
	Long:  fmt.Sprintf(`Run an analysis sweep limited to issues created in the last %d days (or less, if the profile says so).`, workflow.ScheduledMaxDaysOld),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, workflow.Invocation{Scheduled: true})
	},
}

var webhookIssueFlag int

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Run the webhook-triggered workflow once",
	Long: `Run what a webhook delivery would run. With --issue it checks that issue;
without it, it sweeps issues from the last day in dry-run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if webhookIssueFlag < 0 {
			return fmt.Errorf("--issue must be positive (got %d)", webhookIssueFlag)
		}
		return runWorkflow(cmd, workflow.Invocation{Webhook: true, Issue: webhookIssueFlag})
	},
}

func init() {
	webhookCmd.Flags().IntVar(&webhookIssueFlag, "issue", 0, "issue number from the webhook payload")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scheduledCmd)
	rootCmd.AddCommand(webhookCmd)
}

func parseIssueNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("issue must be a positive number (got %q)", s)
	}
	return n, nil
}

// runWorkflow executes one invocation and prints the result. A failed run
// returns an error so the process exits non-zero.
func runWorkflow(cmd *cobra.Command, inv workflow.Invocation) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	a, err := newApp(ctx, out)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	inv.Repository = a.repo.String()
	inv.Profile = a.profileName()
	inv.ForceDryRun = dryRunFlag

	result := a.workflow.Run(ctx, inv)

	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(out, result)
	}

	if !result.Success {
		return fmt.Errorf("%s run failed: %s", result.Mode, result.Error)
	}
	return nil
}
