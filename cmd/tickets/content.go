package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/muaythaitickets/internal/app"
	"github.com/varoOP/muaythaitickets/internal/siteclient"
)

var contentCmd = &cobra.Command{
	Use:   "content <resource>",
	Short: "Fetch a content resource from the running API",
	Long: fmt.Sprintf(`content fetches one read resource from api_base_url and prints its data.

Resources: %s`, strings.Join(siteclient.Resources, ", ")),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource := args[0]
		if !slices.Contains(siteclient.Resources, resource) {
			return fmt.Errorf("unknown resource %q", resource)
		}

		query := url.Values{}
		if stadium, _ := cmd.Flags().GetString("stadium"); stadium != "" {
			query.Set("stadium_id", stadium)
		}
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			query.Set("date", date)
		}

		return withApp(func(a *app.App) error {
			data, _, err := a.SiteClient().Get(cmd.Context(), resource, query)
			if err != nil {
				return err
			}

			var pretty any
			if err := json.Unmarshal(data, &pretty); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pretty)
		})
	},
}

func init() {
	contentCmd.Flags().String("api", "", "API base URL (default http://localhost:8080)")
	contentCmd.Flags().String("stadium", "", "filter tickets by stadium id")
	contentCmd.Flags().String("date", "", "date for dailyImages (YYYY-MM-DD)")
	viper.BindPFlag("api_base_url", contentCmd.Flags().Lookup("api"))
	rootCmd.AddCommand(contentCmd)
}
