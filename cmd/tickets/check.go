package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/varoOP/muaythaitickets/internal/app"
	"github.com/varoOP/muaythaitickets/internal/database"
)

var checkCmd = &cobra.Command{
	Use:   "check-database",
	Short: "Print the live schema, row counts and recent payments",
	Long: `check-database reports, for every table the service knows about, whether
it exists, its columns and its row count, followed by the most recent
payments. Problems are printed as part of the report; the command does not
fail because of them and never modifies the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(func(a *app.App) error {
			report := a.Inspect(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			printReport(os.Stdout, report)
			return nil
		})
	},
}

func printReport(w io.Writer, r *database.Report) {
	fmt.Fprintf(w, "Database: %s (user_version %d)\n\n", r.Path, r.UserVersion)

	for _, t := range r.Tables {
		switch {
		case t.Error != "":
			fmt.Fprintf(w, "%s: error: %s\n", t.Name, t.Error)
			continue
		case !t.Exists:
			fmt.Fprintf(w, "%s: missing\n", t.Name)
			continue
		}

		fmt.Fprintf(w, "%s: %d row(s)\n", t.Name, t.RowCount)
		for _, c := range t.Columns {
			flags := ""
			if c.PrimaryKey > 0 {
				flags += " pk"
			}
			if c.NotNull {
				flags += " not null"
			}
			fmt.Fprintf(w, "  %-22s %s%s\n", c.Name, c.Type, flags)
		}
	}

	fmt.Fprintf(w, "\nRecent payments:\n")
	if len(r.RecentPayments) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, p := range r.RecentPayments {
		fmt.Fprintf(w, "  #%d %s %s %.2f booking=%s created=%s\n",
			p.ID, p.ReferenceNo, p.Status, p.Amount, p.BookingID, p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func init() {
	checkCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(checkCmd)
}
