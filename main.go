// Package main provides the nameplate CLI entry point.
// nameplate resolves informal name mentions against project rosters and
// manages the human-review queue for uncertain resolutions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quorumhq/nameplate/cmd"
	"github.com/quorumhq/nameplate/config"
	"github.com/quorumhq/nameplate/pkg/buildinfo"
)

// Global flags.
var (
	outputFormat string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "nameplate",
	Short: "Resolve name mentions against project rosters",
	Long: `nameplate resolves informal name mentions ("Jon", "Dr. Chen", "JS")
against a project roster with calibrated confidence.

Resolution combines exact matching, corrections learned from earlier human
decisions, fuzzy matching, and optional generative inference. Anything the
pipeline cannot settle confidently lands in a review queue for a human.

COMMON WORKFLOWS:
  Resolve mentions:  nameplate resolve "Jon Smith" "Bob"
  Review queue:      nameplate review list  ->  nameplate review confirm "Jon" --email ...
  Expire stale:      nameplate review sweep
  Roster hygiene:    nameplate roster show team.csv  |  nameplate roster externals`,
}

// loadConfig loads configuration and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if outputFormat != "" {
		format := config.OutputFormat(outputFormat)
		if !format.IsValid() {
			return nil, fmt.Errorf("invalid output format: %s (must be text or json)", outputFormat)
		}
		cfg.OutputFormat = format
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get()
		out := c.OutOrStdout()
		fmt.Fprintf(out, "nameplate version %s\n", info.Version)
		fmt.Fprintf(out, "  commit: %s\n", info.Commit)
		fmt.Fprintf(out, "  built:  %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:     %s\n", info.GoVersion)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		configPath, _ := config.ConfigPath()

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:     %s\n", configPath)
		fmt.Fprintf(out, "  Project ID:      %s\n", cfg.ProjectID)
		fmt.Fprintf(out, "  Roster path:     %s\n", valueOrDefault(cfg.RosterPath, "(not set)"))
		fmt.Fprintf(out, "  Output format:   %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Database:        %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		fmt.Fprintf(out, "  Redis events:    %t\n", cfg.Redis.Enabled)
		fmt.Fprintf(out, "  Inference:       %t (%s)\n", cfg.Inference.Enabled, cfg.Inference.Model)
		fmt.Fprintf(out, "  Fuzzy threshold: %d\n", cfg.Resolver.FuzzyThreshold)
		fmt.Fprintf(out, "  Review expiry:   %s\n", cfg.Review.ExpiryWindow)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with default values",
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(c.OutOrStdout(), "Configuration file already exists: %s\n", configPath)
			return nil
		}

		if err := config.Save(config.DefaultConfig()); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}
		fmt.Fprintf(c.OutOrStdout(), "Created configuration file: %s\n", configPath)
		return nil
	},
}

var completionCmd = &cobra.Command{
	Use:                   "completion [bash|zsh|fish|powershell]",
	Short:                 "Generate shell completion scripts",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	deps := cmd.DefaultDeps()
	deps.LoadConfig = loadConfig

	rootCmd.AddCommand(cmd.NewResolveCommand(deps))
	rootCmd.AddCommand(cmd.NewReviewCommand(deps))
	rootCmd.AddCommand(cmd.NewRosterCommand(deps))
	rootCmd.AddCommand(cmd.NewAuthCommand(deps))
	rootCmd.AddCommand(cmd.NewDBCommand(deps))

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
