package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quorumhq/nameplate/pkg/db"
)

// NewDBCommand creates the db command for database administration.
func NewDBCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database administration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			pool, err := db.Connect(ctx, &deps.Config.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			result, err := db.RunMigrations(ctx, pool)
			if err != nil {
				return err
			}
			if len(result.Applied) == 0 {
				fmt.Fprintln(deps.Out, "No pending migrations.")
				return nil
			}
			fmt.Fprintf(deps.Out, "Applied: %s\n", strings.Join(result.Applied, ", "))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check database connectivity and pool state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Setup(ctx); err != nil {
				return err
			}
			defer deps.Close()

			pool, err := db.Connect(ctx, &deps.Config.Database)
			if err != nil {
				return fmt.Errorf("database UNHEALTHY: %w", err)
			}
			defer pool.Close()

			status := db.Check(ctx, pool)
			if status.Error != nil {
				return fmt.Errorf("database UNHEALTHY: %w", status.Error)
			}
			fmt.Fprintf(deps.Out, "database HEALTHY\n")
			fmt.Fprintf(deps.Out, "  latency:   %s\n", status.Latency)
			fmt.Fprintf(deps.Out, "  conns:     %d total, %d idle, %d acquired\n",
				status.TotalConns, status.IdleConns, status.AcquiredConns)
			return nil
		},
	})

	return cmd
}
