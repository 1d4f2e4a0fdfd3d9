package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/muaythaitickets/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load site content from a YAML file",
	Long: `seed inserts hero images, highlights, tickets, stadium attributes,
special matches, the upcoming fights background, PromptPay QR codes and
stadium payment images from a YAML document, all in one transaction.

With --export the document is only re-written, normalized, to the given path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		export, _ := cmd.Flags().GetString("export")

		return withApp(func(a *app.App) error {
			if export != "" {
				if err := a.ExportSeed(cmd.Context(), file, export); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", export)
				return nil
			}

			if err := a.Seed(cmd.Context(), file); err != nil {
				return err
			}
			fmt.Printf("Seeded content from %s\n", file)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "YAML seed document")
	seedCmd.Flags().String("export", "", "write the normalized document here instead of seeding")
	seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
