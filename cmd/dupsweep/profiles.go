package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/dupsweep/internal/config"
)

var (
	profilesFileFlag string
	profilesForce    bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect and initialize workflow profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the profiles in the profile file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, source, err := openProfileStore()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		gray := color.New(color.FgHiBlack).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		fmt.Fprintf(out, "%s\n", gray("Profiles from "+source))
		for _, name := range store.Names() {
			lookup := store.Lookup(name)
			if lookup.UsedDefault() {
				fmt.Fprintf(out, "  %s %s\n", color.RedString("✗ %s", name), gray(lookup.Warning))
				continue
			}
			p := lookup.Profile
			action := "report only"
			if p.AutoClose {
				action = "auto-close"
			}
			if p.RequireManualReview {
				action += ", manual review"
			}
			fmt.Fprintf(out, "  %s threshold %s | %s\n", green(fmt.Sprintf("%-12s", name)), percent(p.SimilarityThreshold), action)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the resolved settings of one profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openProfileStore()
		if err != nil {
			return err
		}
		lookup := store.Lookup(args[0])
		if lookup.UsedDefault() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("Warning:"), lookup.Warning)
		}
		data, err := yaml.Marshal(map[string]config.Profile{lookup.Name: lookup.Profile})
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var profilesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in profiles to the profile file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := profilesPath()
		if _, err := os.Stat(path); err == nil && !profilesForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveDefaultProfiles(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote strict, moderate and aggressive profiles to %s\n", color.GreenString("✓"), path)
		return nil
	},
}

func init() {
	profilesCmd.PersistentFlags().StringVarP(&profilesFileFlag, "file", "f", "", "profile file (default from DUPSWEEP_PROFILES_PATH)")
	profilesInitCmd.Flags().BoolVar(&profilesForce, "force", false, "overwrite an existing file")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesInitCmd)
	rootCmd.AddCommand(profilesCmd)
}

// profilesPath resolves --file, then DUPSWEEP_PROFILES_PATH, then the default
func profilesPath() string {
	if profilesFileFlag != "" {
		return profilesFileFlag
	}
	if path := os.Getenv("DUPSWEEP_PROFILES_PATH"); path != "" {
		return path
	}
	return "dupsweep-profiles.yaml"
}

// openProfileStore loads the profile file, or the built-in presets when it
// does not exist. The second value describes where profiles came from.
func openProfileStore() (*config.ProfileStore, string, error) {
	path := profilesPath()
	store, err := config.LoadProfileStore(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.BuiltinProfileStore(), "built-in presets", nil
	}
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}
