package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/logging"
	"github.com/steveyegge/dupsweep/internal/notify"
	"github.com/steveyegge/dupsweep/internal/report"
	"github.com/steveyegge/dupsweep/internal/telemetry"
	"github.com/steveyegge/dupsweep/internal/tracker"
	"github.com/steveyegge/dupsweep/internal/workflow"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	repoFlag       string
	profileFlag    string
	issuesFileFlag string
	envFileFlag    string
	dryRunFlag     bool
	verboseFlag    bool
	jsonFlag       bool
)

var rootCmd = &cobra.Command{
	Use:   "dupsweep",
	Short: "Find and remediate duplicate issues",
	Long: `dupsweep scans the open issues of a GitHub or GitLab repository, groups
near-duplicates by text similarity, and optionally comments on, labels and
closes the duplicates according to a named profile.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFileFlag)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&repoFlag, "repo", "r", "", "repository as owner/name (env: DUPSWEEP_REPOSITORY)")
	flags.StringVarP(&profileFlag, "profile", "p", "", "workflow profile name (default from DUPSWEEP_DEFAULT_PROFILE)")
	flags.StringVar(&issuesFileFlag, "issues-file", "", "read issues from a JSON fixture instead of the tracker API")
	flags.StringVar(&envFileFlag, "env-file", ".env", "dotenv file loaded before reading configuration")
	flags.BoolVar(&dryRunFlag, "dry-run", false, "never mutate the tracker, whatever the profile says")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "print progress events as the run proceeds")
	flags.BoolVar(&jsonFlag, "json", false, "print the workflow result as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything a command needs to run the workflow
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	repo      tracker.Repository
	client    tracker.Client
	profiles  *config.ProfileStore
	workflow  *workflow.Workflow
	telemetry *telemetry.Telemetry
	cleanup   []func() error
}

// newApp loads configuration and wires the workflow. Progress events go to
// out when --verbose is set.
func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	repoName := repoFlag
	if repoName == "" {
		repoName = os.Getenv("DUPSWEEP_REPOSITORY")
	}
	a.repo, err = tracker.ParseRepository(repoName)
	if err != nil {
		return nil, fmt.Errorf("%w (use --repo)", err)
	}

	a.telemetry, err = telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return nil, err
	}

	a.client, err = newClient(cfg, a.repo)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.profiles = loadProfiles(cfg.ProfilesPath, logger)

	retention, err := config.ReportRetentionConfigFromEnv()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	sink := report.NewSink(cfg.ReportDir, retention, logger)

	channels, closeChannels, err := notify.FromConfig(cfg, a.client)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.cleanup = append(a.cleanup, closeChannels)

	deps := workflow.Deps{
		Client:       a.client,
		Profiles:     a.profiles,
		Sink:         sink,
		Notifier:     notify.NewDispatcher(logger, channels...),
		Logger:       logger,
		Timeout:      cfg.RunTimeout,
		PageSize:     cfg.PageSize,
		MaxPages:     cfg.MaxPages,
		EnvOverrides: true,
	}
	if verboseFlag {
		deps.Progress = newEventPrinter(out).Print
	}
	a.workflow = workflow.New(deps)
	return a, nil
}

// newClient returns the fixture client when --issues-file is set, otherwise
// a rate-limited hosted client
func newClient(cfg *config.Config, repo tracker.Repository) (tracker.Client, error) {
	if issuesFileFlag != "" {
		fixture, err := tracker.LoadFixture(issuesFileFlag)
		if err != nil {
			return nil, err
		}
		return fixture, nil
	}
	client, err := tracker.NewClient(cfg.Provider, repo, cfg.Token(), cfg.BaseURL())
	if err != nil {
		return nil, err
	}
	return tracker.NewRateLimited(client, cfg.RateLimitRPS, cfg.RateLimitBurst), nil
}

// loadProfiles reads the profile file. A missing file means the built-in
// presets; an unreadable one means no store, so every lookup falls back to
// the moderate default with a warning.
func loadProfiles(path string, logger zerolog.Logger) *config.ProfileStore {
	store, err := config.LoadProfileStore(path)
	if err == nil {
		return store
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.BuiltinProfileStore()
	}
	logger.Warn().Err(err).Str("path", path).Msg("failed to load profile file")
	return nil
}

// profileName resolves --profile against the configured default
func (a *app) profileName() string {
	if profileFlag != "" {
		return profileFlag
	}
	return a.cfg.DefaultProfile
}

// Close releases notifier connections and flushes telemetry
func (a *app) Close(ctx context.Context) {
	for _, fn := range a.cleanup {
		if err := fn(); err != nil {
			a.logger.Warn().Err(err).Msg("cleanup failed")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}
