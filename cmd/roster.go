package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quorumhq/nameplate/pkg/verify"
)

// Roster command flags.
var (
	rosterVerifyURLs []string
	rosterTrack      bool
)

// NewRosterCommand creates the roster command with subcommands.
func NewRosterCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect the project roster",
	}

	cmd.AddCommand(newRosterShowCommand(deps))
	cmd.AddCommand(newRosterExternalsCommand(deps))

	return cmd
}

func newRosterShowCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Load and display a roster file",
		Long: `Load a roster file (JSON or CSV), report what was accepted, and display
the entries. Malformed rows are skipped with a warning, matching what the
resolver does at resolution time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Setup(cmd.Context()); err != nil {
				return err
			}
			defer deps.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := deps.LoadRoster(path)
			if err != nil {
				return err
			}

			if deps.jsonOutput() {
				return deps.printJSON(entries)
			}

			fmt.Fprintf(deps.Out, "%d entries\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(deps.Out, "  %-25s %-30s %s\n", e.DisplayName, e.Email, strings.Join(e.Aliases, ", "))
			}
			return nil
		},
	}
}

func newRosterExternalsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "externals [file]",
		Short: "Find project participants missing from the roster",
		Long: `Query the membership directories for project participants that do not
appear on the roster. Each is reported as an external candidate; with
--track they are queued for human review.

Examples:
  nameplate roster externals --verify-url http://dir.internal team.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			if len(rosterVerifyURLs) == 0 && len(deps.Verifiers) == 0 {
				return fmt.Errorf("at least one --verify-url is required")
			}
			for _, url := range rosterVerifyURLs {
				deps.Verifiers = append(deps.Verifiers,
					verify.NewHTTPVerifier(verifierName(url), url, deps.Config.Resolver.VerifyTimeout))
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := deps.LoadRoster(path)
			if err != nil {
				return err
			}

			results, err := deps.Engine().ExternalCandidates(ctx, entries, deps.Config.ProjectID)
			if err != nil {
				return err
			}

			if rosterTrack {
				workflow := deps.Workflow()
				for i := range results {
					if _, err := workflow.Register(ctx, &results[i]); err != nil {
						return fmt.Errorf("tracking %q: %w", results[i].Mention, err)
					}
				}
			}

			if deps.jsonOutput() {
				return deps.printJSON(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(deps.Out, "No external candidates.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(deps.Out, "%-40s reported by %s\n", r.MatchedEmail, strings.Join(r.CorroboratedBy, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rosterVerifyURLs, "verify-url", nil, "membership directory base URL (repeatable)")
	cmd.Flags().BoolVar(&rosterTrack, "track", false, "queue external candidates for review")
	return cmd
}
