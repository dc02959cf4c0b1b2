package migrate

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// MigrateDb applies the embedded migrations.
func MigrateDb(dbURI string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, pgxURL(dbURI))
	if err != nil {
		return err
	}
	defer m.Close()
	return up(m)
}

// MigrateFromSource applies migrations from an external location like
// file:///path/to/migrations
func MigrateFromSource(sourceURL, dbURI string) error {
	m, err := migrate.New(sourceURL, pgxURL(dbURI))
	if err != nil {
		return err
	}
	defer m.Close()
	return up(m)
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func pgxURL(dbURI string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dbURI, prefix) {
			return "pgx5://" + strings.TrimPrefix(dbURI, prefix)
		}
	}
	return dbURI
}
