package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emberdb/ember/docstore"
	"github.com/emberdb/ember/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "emberctl",
	Short: "Command-line front end over an embedded ember document store",
	Long: `emberctl opens a single ember data file and runs one CRUD, index, or
maintenance operation against it per invocation.`,
}

// Execute runs the root command, printing a styled error and exiting
// non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.ember/ember.toml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the data file")
	rootCmd.PersistentFlags().String("file", "store.db", "data file name within data-dir")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("file", rootCmd.PersistentFlags().Lookup("file"))
}

// initConfig layers viper's env var and flag overrides on top of the TOML
// defaults internal/config loads from disk.
func initConfig() {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".ember", "ember.toml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("config: %v", err)))
		cfg = config.Default()
	}

	viper.SetEnvPrefix("EMBER")
	viper.AutomaticEnv()
	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("corrupt_alert_threshold", cfg.CorruptAlertThreshold)
	viper.SetDefault("timestamp_data", cfg.TimestampData)
	viper.SetDefault("watch_external_writes", cfg.WatchExternalWrites)
}

func dataFilePath() string {
	return filepath.Join(viper.GetString("data_dir"), viper.GetString("file"))
}

// openStore opens the configured data file with autoload on, the shared
// entry point every subcommand uses.
func openStore() (*docstore.Datastore, error) {
	return docstore.Open(docstore.Options{
		Filename:              dataFilePath(),
		Autoload:              true,
		TimestampData:         viper.GetBool("timestamp_data"),
		CorruptAlertThreshold: viper.GetFloat64("corrupt_alert_threshold"),
		WatchExternalWrites:   viper.GetBool("watch_external_writes"),
	})
}
