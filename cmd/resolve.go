package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quorumhq/nameplate/pkg/resolve"
	"github.com/quorumhq/nameplate/pkg/verify"
)

// Resolve command flags.
var (
	resolveRosterPath string
	resolveProject    string
	resolveVerifyURLs []string
	resolveTrack      bool
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "resolve <mention> [mention...]",
		Short: "Resolve name mentions against the project roster",
		Long: `Resolve informal name mentions against the project roster.

Each mention runs through exact matching, learned corrections, fuzzy
matching, and (when enabled) generative inference. A result below the
auto-resolve confidence threshold is flagged for human review.

Examples:
  nameplate resolve "Jon Smith"
  nameplate resolve --roster team.csv "Bob" "Dr. Chen" "JS"
  nameplate resolve --track "John"             Track unresolved mentions for review
  nameplate resolve --verify-url http://dir.internal "Jon"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			entries, err := deps.LoadRoster(resolveRosterPath)
			if err != nil {
				return err
			}

			for _, url := range resolveVerifyURLs {
				deps.Verifiers = append(deps.Verifiers,
					verify.NewHTTPVerifier(verifierName(url), url, deps.Config.Resolver.VerifyTimeout))
			}

			projectID := resolveProject
			if projectID == "" {
				projectID = deps.Config.ProjectID
			}

			engine := deps.Engine()
			results, err := engine.ResolveAll(ctx, args, entries, projectID)
			if err != nil {
				return fmt.Errorf("resolving mentions: %w", err)
			}

			if resolveTrack {
				workflow := deps.Workflow()
				for i := range results {
					if !results[i].RequiresReview {
						continue
					}
					if _, err := workflow.Register(ctx, &results[i]); err != nil {
						return fmt.Errorf("tracking %q for review: %w", results[i].Mention, err)
					}
				}
			}

			if deps.jsonOutput() {
				return deps.printJSON(results)
			}
			printResults(deps, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&resolveRosterPath, "roster", "", "roster file (JSON or CSV); defaults to roster_path from config")
	cmd.Flags().StringVar(&resolveProject, "project", "", "project ID (defaults to config)")
	cmd.Flags().StringArrayVar(&resolveVerifyURLs, "verify-url", nil, "membership directory base URL (repeatable)")
	cmd.Flags().BoolVar(&resolveTrack, "track", false, "track results that require review")

	return cmd
}

func printResults(deps *Deps, results []resolve.Result) {
	for i := range results {
		r := &results[i]
		if r.MatchedEmail != "" {
			fmt.Fprintf(deps.Out, "%-20s -> %-30s %.2f (%s)", r.Mention, r.MatchedEmail, r.Confidence, r.Source)
		} else {
			fmt.Fprintf(deps.Out, "%-20s -> %-30s %.2f (%s)", r.Mention, "(unresolved)", r.Confidence, r.Source)
		}
		if len(r.CorroboratedBy) > 0 {
			fmt.Fprintf(deps.Out, " corroborated by %s", strings.Join(r.CorroboratedBy, ", "))
		}
		if r.RequiresReview {
			fmt.Fprint(deps.Out, "  NEEDS REVIEW")
		}
		fmt.Fprintln(deps.Out)

		for _, alt := range r.Alternatives {
			fmt.Fprintf(deps.Out, "    candidate: %-30s %s (%.2f)\n", alt.Email, alt.DisplayName, alt.Score)
		}
		if r.Reasoning != "" {
			fmt.Fprintf(deps.Out, "    reasoning: %s\n", r.Reasoning)
		}
	}
}

// verifierName derives a short verifier label from its URL.
func verifierName(url string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexAny(name, "/:"); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "directory"
	}
	return name
}
