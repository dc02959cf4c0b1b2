//nolint:whitespace //can't make both the linter and editor happy :(
package season

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, name string) error {
	_, err := conn.Exec(ctx, "insert into season (name) values ($1)", name)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", model.ErrSeasonExists, name)
	}
	return err
}

// Ensure creates the season if missing.
func Ensure(ctx context.Context, conn repository.Querier, name string) error {
	_, err := conn.Exec(ctx,
		"insert into season (name) values ($1) on conflict do nothing", name)
	return err
}

func Exists(ctx context.Context, conn repository.Querier, name string) (bool, error) {
	var ret bool
	err := conn.QueryRow(ctx,
		"select exists(select 1 from season where name=$1)", name).Scan(&ret)
	return ret, err
}

func List(ctx context.Context, conn repository.Querier) ([]string, error) {
	rows, err := conn.Query(ctx, "select name from season order by name")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// LoadDrivers returns the driver records of a season keyed by name.
func LoadDrivers(
	ctx context.Context,
	conn repository.Querier,
	name string,
) (model.Drivers, error) {
	rows, err := conn.Query(ctx,
		"select driver_name, data from season_driver where season_name=$1", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := model.Drivers{}
	for rows.Next() {
		var driverName string
		var data []byte
		if err := rows.Scan(&driverName, &data); err != nil {
			return nil, err
		}
		var d model.DriverRecord
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode driver %s: %w", driverName, err)
		}
		if d.Name == "" {
			d.Name = driverName
		}
		ret[driverName] = &d
	}
	return ret, rows.Err()
}

// ReplaceDrivers replaces all driver records of a season.
// Must be called within a transaction.
func ReplaceDrivers(
	ctx context.Context,
	tx pgx.Tx,
	name string,
	drivers model.Drivers,
) error {
	if _, err := tx.Exec(ctx,
		"delete from season_driver where season_name=$1", name); err != nil {
		return err
	}
	if len(drivers) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, driverName := range drivers.Names() {
		data, err := json.Marshal(drivers[driverName])
		if err != nil {
			return err
		}
		batch.Queue(
			"insert into season_driver (season_name, driver_name, data) values ($1,$2,$3::jsonb)",
			name, driverName, string(data))
	}
	return tx.SendBatch(ctx, batch).Close()
}

// DeleteByName deletes a season, returns number of rows deleted.
func DeleteByName(ctx context.Context, conn repository.Querier, name string) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from season where name=$1", name)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// Rename renames a season, driver and payload references follow via cascade.
func Rename(ctx context.Context, conn repository.Querier, from, to string) (int, error) {
	cmdTag, err := conn.Exec(ctx, "update season set name=$2 where name=$1", from, to)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return 0, fmt.Errorf("%w: %s", model.ErrSeasonExists, to)
	}
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
