package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupsweep/internal/similarity"
	"github.com/steveyegge/dupsweep/internal/textnorm"
	"github.com/steveyegge/dupsweep/internal/types"
	"github.com/steveyegge/dupsweep/internal/workflow"
)

var compareCmd = &cobra.Command{
	Use:   "compare <issue> <issue>",
	Short: "Score two issues against each other",
	Long: `Fetch two issues and print the per-field similarity breakdown under the selected profile.
DUPSWEEP_DEDUP_* overrides apply the same way they do for analyze.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		first, err := parseIssueNumber(args[0])
		if err != nil {
			return err
		}
		second, err := parseIssueNumber(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		left, err := a.client.GetIssue(ctx, first)
		if err != nil {
			return fmt.Errorf("fetching issue #%d: %w", first, err)
		}
		right, err := a.client.GetIssue(ctx, second)
		if err != nil {
			return fmt.Errorf("fetching issue #%d: %w", second, err)
		}

		lookup := a.profiles.Lookup(a.profileName())
		cfg := workflow.BuildClusterConfig(lookup.Profile, types.ModeAnalysis)
		if overridden, err := cfg.ApplyEnv(); err != nil {
			a.logger.Warn().Err(err).Msg("ignoring invalid dedup environment overrides")
		} else {
			cfg = overridden
		}
		score := similarity.ComparePair(*left, *right, textnorm.New(cfg.Normalizer), cfg.ScorerOptions())

		printComparison(cmd, *left, *right, score, cfg.Threshold)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func printComparison(cmd *cobra.Command, left, right types.IssueRecord, score types.SimilarityResult, threshold float64) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(out, "%s %s\n", green(left.Ref()), left.Title)
	fmt.Fprintf(out, "%s %s\n\n", green(right.Ref()), right.Title)
	fmt.Fprintf(out, "  %-10s %s\n", "title", percent(score.Title))
	fmt.Fprintf(out, "  %-10s %s\n", "body", percent(score.Body))
	fmt.Fprintf(out, "  %-10s %s\n", "labels", percent(score.Labels))
	fmt.Fprintf(out, "  %-10s %s\n", "metadata", percent(score.Metadata))
	fmt.Fprintf(out, "  %-10s %s %s\n", "overall", yellow(percent(score.Overall)), gray(fmt.Sprintf("(%s, confidence %s)", score.Algorithm, percent(score.Confidence))))

	verdict := gray("below threshold " + percent(threshold))
	if score.Overall >= threshold {
		verdict = color.RedString("duplicate at threshold %s", percent(threshold))
	}
	fmt.Fprintf(out, "\n  %s\n", verdict)
}
