//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/iracelog-league-stats/pkg/db/migrate"
	database "github.com/mpapenbr/iracelog-league-stats/pkg/db/postgres"
)

// SetupTestDb returns a pool to a migrated database in a postgres container
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	container, err := SetupPostgres(ctx,
		WithCredentials("postgres", "password", "postgres"),
		WithName("iracelog-league-stats-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	dbURL, err := container.ConnectionURL(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return setupPool(ctx, dbURL)
}

// SetupExternalTestDb uses the database referenced by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return setupPool(context.Background(), os.Getenv("TESTDB_URL"))
}

func setupPool(ctx context.Context, dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(ctx, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearPayloadTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from payload_season")
	pool.Exec(context.Background(), "delete from payload")
}

func ClearSeasonTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from season_driver")
	pool.Exec(context.Background(), "delete from season")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearPayloadTables(pool)
	ClearSeasonTables(pool)
}
