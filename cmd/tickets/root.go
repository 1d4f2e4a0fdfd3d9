package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/muaythaitickets/internal/app"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Muay Thai stadium ticketing backend",
	Long: `tickets serves the stadium ticketing API and maintains its SQLite
database: schema migrations, content seeding, payment and verification
housekeeping, and schema inspection.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.tickets.yaml)")
	rootCmd.PersistentFlags().String("database", "", "path to the SQLite database file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn or error")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("TICKETS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile == "" {
		viper.SetConfigName(".tickets")
		if err := viper.ReadInConfig(); err == nil {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// withApp builds the application for one command and closes it afterwards.
func withApp(fn func(a *app.App) error) error {
	a, err := app.NewApp()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log := a.Logger()
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	return fn(a)
}
