//nolint:whitespace //can't make both the linter and editor happy :(
package payload

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository"
)

// ErrDigestExists is returned by Create if the digest is already stored
var ErrDigestExists = errors.New("digest exists")

func Create(
	ctx context.Context,
	conn repository.Querier,
	rec *model.IngestionRecord,
	content []byte,
) error {
	_, err := conn.Exec(ctx, `
insert into payload (id, digest, filename, original_name, size, content, created_at)
values ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.Digest, rec.Filename, rec.OriginalName, rec.Size, content, rec.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "payload_digest_idx" {
		return ErrDigestExists
	}
	if err != nil {
		return err
	}
	for _, s := range rec.Seasons {
		if _, err := conn.Exec(ctx,
			"insert into payload_season (payload_id, season_name) values ($1,$2)",
			rec.ID, s); err != nil {
			return err
		}
	}
	return nil
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]*model.IngestionRecord, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by p.created_at desc, p.filename desc", selector))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.IngestionRecord, error) {
		return scan(row)
	})
}

func LoadByDigest(
	ctx context.Context,
	conn repository.Querier,
	digest string,
) (*model.IngestionRecord, error) {
	return loadOne(ctx, conn, "p.digest=$1", digest)
}

func LoadByFilename(
	ctx context.Context,
	conn repository.Querier,
	filename string,
) (*model.IngestionRecord, error) {
	return loadOne(ctx, conn, "p.filename=$1", filename)
}

func Content(ctx context.Context, conn repository.Querier, filename string) ([]byte, error) {
	var ret []byte
	err := conn.QueryRow(ctx,
		"select content from payload where filename=$1", filename).Scan(&ret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, filename)
	}
	return ret, err
}

// DeleteByID deletes a payload and its season associations.
func DeleteByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from payload where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func loadOne(
	ctx context.Context,
	conn repository.Querier,
	cond string,
	arg any,
) (*model.IngestionRecord, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf("%s where %s", selector, cond), arg)
	if err != nil {
		return nil, err
	}
	ret, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (*model.IngestionRecord, error) {
		return scan(row)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", model.ErrPayloadNotFound, arg)
	}
	return ret, err
}

// little helper
const selector = `select p.id, p.digest, p.filename, p.original_name, p.size, p.created_at,
 array(select ps.season_name from payload_season ps where ps.payload_id=p.id order by ps.season_name)
 from payload p`

func scan(row pgx.Row) (*model.IngestionRecord, error) {
	var e model.IngestionRecord
	if err := row.Scan(&e.ID, &e.Digest, &e.Filename, &e.OriginalName,
		&e.Size, &e.CreatedAt, &e.Seasons); err != nil {
		return nil, err
	}
	if e.Seasons == nil {
		e.Seasons = []string{}
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
