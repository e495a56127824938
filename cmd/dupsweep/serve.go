package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/dupsweep/internal/server"
	"github.com/steveyegge/dupsweep/internal/types"
	"github.com/steveyegge/dupsweep/internal/workflow"
)

var (
	serveAddrFlag string
	serveWaitFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GitHub and GitLab issue webhooks",
	Long: `Listen for issue webhooks and run a duplicate check for every opened,
reopened or edited issue. Endpoints: POST /webhooks/github, POST /webhooks/gitlab, GET /health.

Accepted deliveries get 202 right away and the check runs in the background,
since GitHub gives up on deliveries that take longer than 10 seconds. With
--wait the response carries the run result instead (200 or 500).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		addr := serveAddrFlag
		if addr == "" {
			addr = a.cfg.ServerAddr
		}

		srv := server.New(server.Config{
			Repository:        a.repo.String(),
			Profile:           a.profileName(),
			GitHubSecret:      a.cfg.GitHubWebhookSecret,
			GitLabToken:       a.cfg.GitLabWebhookToken,
			MaxConcurrentRuns: a.cfg.MaxConcurrentRuns,
			Tracing:           a.telemetry != nil,
			ServiceName:       a.cfg.ServiceName,
			Release:           !strings.EqualFold(a.cfg.Environment, "local"),
			Async:             !serveWaitFlag,
		}, func(ctx context.Context, inv workflow.Invocation) *types.WorkflowResult {
			inv.ForceDryRun = inv.ForceDryRun || dryRunFlag
			return a.workflow.Run(ctx, inv)
		}, a.logger)

		if a.cfg.GitHubWebhookSecret == "" && a.cfg.GitLabWebhookToken == "" {
			a.logger.Warn().Msg("no webhook secret configured; deliveries are not authenticated")
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default from DUPSWEEP_SERVER_ADDR)")
	serveCmd.Flags().BoolVar(&serveWaitFlag, "wait", false, "run checks before responding and return the result")
	rootCmd.AddCommand(serveCmd)
}
