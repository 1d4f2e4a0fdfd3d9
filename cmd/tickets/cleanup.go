package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/muaythaitickets/internal/app"
)

var cleanupVerificationsCmd = &cobra.Command{
	Use:   "cleanup-verifications",
	Short: "Delete unverified email verifications past their expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			removed, err := a.CleanupVerifications(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired verification(s)\n", removed)
			return nil
		})
	},
}

var expirePaymentsCmd = &cobra.Command{
	Use:   "expire-payments",
	Short: "Mark pending payments past their expire date as expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			expired, err := a.ExpirePayments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Expired %d payment(s)\n", expired)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cleanupVerificationsCmd, expirePaymentsCmd)
}
