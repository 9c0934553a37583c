// Package main is the celesta CLI: a thin cobra front end over
// internal/config, internal/scoreio, internal/adaptor and
// internal/updater, wiring score loading, dialect choice and CLI
// bootstrap around the upgrade state machine those packages define.
//
// Grounded on petar-djukic-crumbs/cmd/cupboard/main.go for the
// root-command/subcommand layout and --config flag, and
// bigmountainben-go-mysql-dummy-populator/cmd/mysql-dummy-populator/main.go
// for wiring a config loader and logger ahead of the actual work.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celesta-db/celesta/internal/config"
)

var (
	configDir string
	envFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "celesta",
	Short: "celesta drives a schema-first relational database toward a declared score",
	Long: `celesta reads a set of grain definitions (a score) and brings a target
database's live schema in line with them, tracking per-grain upgrade
state in a system grain so partial failures and re-runs are safe.`,
}

func init() {
	home, _ := os.UserHomeDir()
	defaultConfigDir := home + "/.celesta"

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir, "directory holding config.yaml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file to load")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(demoCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the celesta CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("celesta v0.1.0")
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(configDir, envFile)
}
