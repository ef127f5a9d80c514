package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quorumhq/nameplate/pkg/review"
)

// Review command flags.
var (
	reviewProject string
	reviewLimit   int
	reviewEmail   string
	reviewBy      string
)

// NewReviewCommand creates the review command with all subcommands.
func NewReviewCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Manage the human-review queue",
		Long: `Manage mentions that resolution could not settle automatically.

Pending items wait for a human decision. Confirming teaches the resolver:
the same mention resolves automatically from then on. Items left pending
past the expiry window are expired by 'review sweep'.`,
	}

	cmd.PersistentFlags().StringVar(&reviewProject, "project", "", "project ID (defaults to config)")

	cmd.AddCommand(newReviewListCommand(deps))
	cmd.AddCommand(newReviewConfirmCommand(deps))
	cmd.AddCommand(newReviewRejectCommand(deps))
	cmd.AddCommand(newReviewSweepCommand(deps))
	cmd.AddCommand(newReviewCountCommand(deps))

	return cmd
}

func reviewProjectID(deps *Deps) string {
	if reviewProject != "" {
		return reviewProject
	}
	return deps.Config.ProjectID
}

func newReviewListCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending review items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			items, err := deps.Workflow().ListPending(ctx, reviewProjectID(deps), reviewLimit)
			if err != nil {
				return err
			}

			if deps.jsonOutput() {
				return deps.printJSON(items)
			}

			if len(items) == 0 {
				fmt.Fprintln(deps.Out, "No pending review items.")
				return nil
			}
			for _, item := range items {
				age := time.Since(item.CreatedAt).Round(time.Hour)
				fmt.Fprintf(deps.Out, "%s  %-20s  age %-8s", item.ID, item.Mention, age)
				if item.ExternalCandidate {
					fmt.Fprint(deps.Out, "  EXTERNAL")
				}
				fmt.Fprintln(deps.Out)
				for _, c := range item.Candidates {
					fmt.Fprintf(deps.Out, "    %-30s %s (%.2f)\n", c.Email, c.DisplayName, c.Score)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&reviewLimit, "limit", 0, "maximum items to list (0 = all)")
	return cmd
}

func newReviewConfirmCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <mention>",
		Short: "Confirm which person a pending mention refers to",
		Long: `Confirm a pending mention. The chosen email is recorded as a learned
mapping, so the same mention resolves automatically next time.

With --email the decision is non-interactive. Without it, and when run on
a terminal, the pending item's candidates are offered as a numbered menu.

Examples:
  nameplate review confirm "Jon" --email jon.smith@corp.com
  nameplate review confirm "Jon"                  Interactive candidate pick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			mention := args[0]
			projectID := reviewProjectID(deps)
			email := reviewEmail

			if email == "" {
				item, err := deps.Reviews.FindPending(ctx, projectID, mention)
				if err != nil {
					return fmt.Errorf("no pending item for %q and no --email given: %w", mention, err)
				}
				email, err = pickCandidate(deps, item)
				if err != nil {
					return err
				}
			}

			if err := deps.Workflow().Confirm(ctx, projectID, mention, email, reviewBy); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Confirmed %q -> %s\n", mention, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewEmail, "email", "", "email of the person the mention refers to")
	cmd.Flags().StringVar(&reviewBy, "by", "", "reviewer identity recorded with the decision")
	return cmd
}

// pickCandidate offers the item's candidates as a numbered menu. Requires a
// terminal; in pipelines the caller must pass --email.
func pickCandidate(deps *Deps, item *review.Item) (string, error) {
	if len(item.Candidates) == 0 {
		return "", fmt.Errorf("item has no candidates; pass --email")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("not a terminal; pass --email")
	}

	fmt.Fprintf(deps.Out, "Candidates for %q:\n", item.Mention)
	for i, c := range item.Candidates {
		fmt.Fprintf(deps.Out, "  [%d] %-30s %s (%.2f)\n", i+1, c.Email, c.DisplayName, c.Score)
	}
	fmt.Fprintf(deps.Out, "Choose [1-%d] or enter an email: ", len(item.Candidates))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading choice: %w", err)
	}
	line = strings.TrimSpace(line)

	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(item.Candidates) {
			return "", fmt.Errorf("choice %d out of range", n)
		}
		return item.Candidates[n-1].Email, nil
	}
	if strings.Contains(line, "@") {
		return line, nil
	}
	return "", fmt.Errorf("invalid choice %q", line)
}

func newReviewRejectCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <mention>",
		Short: "Reject all candidates for a pending mention",
		Long: `Reject a pending mention: none of the offered candidates is the right
person. No learned mapping is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Workflow().Reject(ctx, reviewProjectID(deps), args[0], reviewBy); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Rejected %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewBy, "by", "", "reviewer identity recorded with the decision")
	return cmd
}

func newReviewSweepCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire pending items older than the expiry window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.Workflow().Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "Expired %d item(s)\n", n)
			return nil
		},
	}
}

func newReviewCountCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count pending items blocking downstream processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.Workflow().BlockingCount(ctx, reviewProjectID(deps))
			if err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, n)
			return nil
		},
	}
}
