package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/varoOP/muaythaitickets/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			runner, err := a.Migrator()
			if err != nil {
				return err
			}

			applied, err := runner.Up(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Applied %d migration(s), schema at version %d\n", applied, runner.Latest())
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert applied migrations above a target version",
	Long: `down reverts applied migrations newer than --to, newest first.
Migrations marked irreversible stop the command unless --force is given. A
forced rollback runs the migration's best-effort down step, which may drop
objects such as idx_bookings_payment_id, and then removes its ledger row.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetInt("to")
		force, _ := cmd.Flags().GetBool("force")

		return withApp(func(a *app.App) error {
			runner, err := a.Migrator()
			if err != nil {
				return err
			}

			reverted, err := runner.Down(cmd.Context(), target, force)
			if err != nil {
				return err
			}

			fmt.Printf("Reverted %d migration(s), schema at version %d\n", reverted, target)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List known and applied migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			runner, err := a.Migrator()
			if err != nil {
				return err
			}

			status, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tREVERSIBLE\tAPPLIED\tAPPLIED AT")
			for _, s := range status {
				appliedAt := "-"
				if s.AppliedAt != nil {
					appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				name := s.Name
				if !s.Known {
					name += " (unknown)"
				}
				fmt.Fprintf(w, "%03d\t%s\t%t\t%t\t%s\n", s.Version, name, s.Reversible, s.Applied, appliedAt)
			}
			if gaps := runner.Gaps(); len(gaps) > 0 {
				fmt.Fprintf(w, "\nmissing versions: %v\n", gaps)
			}
			return w.Flush()
		})
	},
}

func init() {
	migrateDownCmd.Flags().Int("to", 0, "version to revert down to (0 reverts everything)")
	migrateDownCmd.Flags().Bool("force", false, "run the best-effort down step of irreversible migrations instead of failing")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
