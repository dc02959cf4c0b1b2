package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/iracelog-league-stats/testsupport/tcpostgres"
)

// InitTestDb returns a pool to an empty, migrated database.
// TESTDB_URL selects an external database instead of a container.
func InitTestDb() *pgxpool.Pool {
	var pool *pgxpool.Pool
	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
