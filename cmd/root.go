/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mpapenbr/iracelog-league-stats/log"
	checkCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/check"
	ingestCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/ingest"
	migrateCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/migrate"
	payloadCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/payload"
	queryCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/query"
	seasonCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/season"
	serverCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/server"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	watchCmd "github.com/mpapenbr/iracelog-league-stats/pkg/cmd/watch"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/version"
)

const envPrefix = "ILS"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "ils",
	Short:   "Season and career statistics for iRacing leagues",
	Long:    ``,
	Version: version.FullVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := util.SetupLogger()
		cmd.SetContext(log.AddToContext(cmd.Context(), logger))
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // by design
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.ils.yml)")

	rootCmd.PersistentFlags().StringVar(&config.Storage, "storage",
		config.StorageFile,
		"storage backend (file, postgres)")
	rootCmd.PersistentFlags().StringVar(&config.DataDir, "data-dir",
		"data",
		"root directory of the file storage backend")
	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"postgresql://DB_USERNAME:DB_USER_PASSWORD@DB_HOST:5432/leaguestats",
		"Connection string for the database")
	rootCmd.PersistentFlags().StringVar(&config.CurrentSeason, "current-season",
		"Season_1",
		"season used when no season is given")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules to restrict log output (example: 'warn+:* *:stats*')")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"nats server receiving season change notifications (example: nats://localhost:4222)")
	rootCmd.PersistentFlags().StringVar(&config.NatsSubject,
		"nats-subject",
		"ils",
		"subject prefix for season change notifications")
	rootCmd.PersistentFlags().StringVar(&config.NotifyTimeout,
		"notify-timeout",
		"5s",
		"max duration for delivering a notification")

	// add commands here
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
	rootCmd.AddCommand(serverCmd.NewServerCmd())
	rootCmd.AddCommand(ingestCmd.NewIngestCmd())
	rootCmd.AddCommand(payloadCmd.NewPayloadCmd())
	rootCmd.AddCommand(seasonCmd.NewSeasonCmd())
	rootCmd.AddCommand(queryCmd.NewRankCmd())
	rootCmd.AddCommand(queryCmd.NewDriverCmd())
	rootCmd.AddCommand(checkCmd.NewCheckCmd())
	rootCmd.AddCommand(watchCmd.NewWatchCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".ils" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ils")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindAll(rootCmd, viper.GetViper())
}

func bindAll(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, c := range cmd.Commands() {
		bindAll(c, v)
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --data-dir to ILS_DATA_DIR
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
