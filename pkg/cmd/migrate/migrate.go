package migrate

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/pkg/db/migrate"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		Long: `Applies the database schema used by the postgres storage backend.
Without --migration-source-url the migrations bundled with the binary are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd)
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files (example: file:///migrations)")

	return cmd
}

func startMigration(cmd *cobra.Command) error {
	logger := log.GetFromContext(cmd.Context()).Named("migrate")
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		logger.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err = utils.WaitForTCP(cmd.Context(), postgresAddr, timeout); err != nil {
		logger.Error("database not ready", log.ErrorField(err))
		return err
	}

	if config.MigrationSourceURL == "" {
		logger.Info("Using bundled migrations")
		err = migrate.MigrateDb(config.DB)
	} else {
		logger.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
		err = migrate.MigrateFromSource(config.MigrationSourceURL, config.DB)
	}
	if err != nil {
		logger.Error("migration failed", log.ErrorField(err))
		return err
	}
	logger.Info("Database is up to date")
	return nil
}
