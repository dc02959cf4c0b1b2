// Package postgres implements the repositories on top of a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
	payloadrepos "github.com/mpapenbr/iracelog-league-stats/pkg/repository/payload"
	seasonrepos "github.com/mpapenbr/iracelog-league-stats/pkg/repository/season"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ api.Repositories = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Season() api.SeasonRepository {
	return &seasonRepo{pool: s.pool}
}

func (s *Store) Payload() api.PayloadRepository {
	return &payloadRepo{pool: s.pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func saveSeasons(ctx context.Context, tx pgx.Tx, seasons []*model.Season) error {
	for _, season := range seasons {
		if err := seasonrepos.Ensure(ctx, tx, season.Name); err != nil {
			return err
		}
		if err := seasonrepos.ReplaceDrivers(ctx, tx, season.Name, season.Drivers); err != nil {
			return err
		}
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Store) CommitIngestion(
	ctx context.Context,
	rec *model.IngestionRecord,
	content []byte,
	seasons []*model.Season,
) error {
	err := repository.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := saveSeasons(ctx, tx, seasons); err != nil {
			return err
		}
		return payloadrepos.Create(ctx, tx, rec, content)
	})
	if errors.Is(err, payloadrepos.ErrDigestExists) {
		// stored concurrently by another instance
		dup := &model.DuplicateError{Digest: rec.Digest}
		if existing, lerr := payloadrepos.LoadByDigest(ctx, s.pool, rec.Digest); lerr == nil {
			dup.Existing = existing.Filename
		}
		return dup
	}
	if err != nil {
		return model.NewStorageError("ingest", err)
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Store) CommitReversal(
	ctx context.Context,
	rec *model.IngestionRecord,
	seasons []*model.Season,
) error {
	err := repository.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := saveSeasons(ctx, tx, seasons); err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		_, err := payloadrepos.DeleteByID(ctx, tx, rec.ID)
		return err
	})
	if err != nil {
		return model.NewStorageError("reverse", err)
	}
	return nil
}

type seasonRepo struct {
	pool *pgxpool.Pool
}

func (r *seasonRepo) List(ctx context.Context) ([]string, error) {
	ret, err := seasonrepos.List(ctx, r.pool)
	if err != nil {
		return nil, model.NewStorageError("list seasons", err)
	}
	return ret, nil
}

func (r *seasonRepo) Exists(ctx context.Context, name string) (bool, error) {
	ret, err := seasonrepos.Exists(ctx, r.pool, name)
	if err != nil {
		return false, model.NewStorageError("stat season", err)
	}
	return ret, nil
}

func (r *seasonRepo) Create(ctx context.Context, name string) error {
	if !model.ValidSeasonName(name) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, name)
	}
	err := seasonrepos.Create(ctx, r.pool, name)
	if err != nil && !errors.Is(err, model.ErrSeasonExists) {
		return model.NewStorageError("create season", err)
	}
	return err
}

func (r *seasonRepo) Load(ctx context.Context, name string) (*model.Season, error) {
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	drivers, err := seasonrepos.LoadDrivers(ctx, r.pool, name)
	if err != nil {
		return nil, model.NewStorageError("load season", err)
	}
	return &model.Season{Name: name, Drivers: drivers}, nil
}

func (r *seasonRepo) Save(ctx context.Context, season *model.Season) error {
	if !model.ValidSeasonName(season.Name) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, season.Name)
	}
	err := repository.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return saveSeasons(ctx, tx, []*model.Season{season})
	})
	if err != nil {
		return model.NewStorageError("save season", err)
	}
	return nil
}

func (r *seasonRepo) Delete(ctx context.Context, name string) error {
	n, err := seasonrepos.DeleteByName(ctx, r.pool, name)
	if err != nil {
		return model.NewStorageError("delete season", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	return nil
}

func (r *seasonRepo) Rename(ctx context.Context, from, to string) error {
	if !model.ValidSeasonName(to) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, to)
	}
	n, err := seasonrepos.Rename(ctx, r.pool, from, to)
	if errors.Is(err, model.ErrSeasonExists) {
		return err
	}
	if err != nil {
		return model.NewStorageError("rename season", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrSeasonNotFound, from)
	}
	return nil
}

type payloadRepo struct {
	pool *pgxpool.Pool
}

func (r *payloadRepo) LoadAll(ctx context.Context) ([]*model.IngestionRecord, error) {
	ret, err := payloadrepos.LoadAll(ctx, r.pool)
	if err != nil {
		return nil, model.NewStorageError("load payloads", err)
	}
	return ret, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (r *payloadRepo) FindByDigest(
	ctx context.Context,
	digest string,
) (*model.IngestionRecord, error) {
	return wrapLookup(payloadrepos.LoadByDigest(ctx, r.pool, digest))
}

//nolint:whitespace // can't make both editor and linter happy
func (r *payloadRepo) LoadByFilename(
	ctx context.Context,
	filename string,
) (*model.IngestionRecord, error) {
	return wrapLookup(payloadrepos.LoadByFilename(ctx, r.pool, filename))
}

func (r *payloadRepo) Content(ctx context.Context, filename string) ([]byte, error) {
	ret, err := payloadrepos.Content(ctx, r.pool, filename)
	if err != nil && !errors.Is(err, model.ErrPayloadNotFound) {
		return nil, model.NewStorageError("read payload", err)
	}
	return ret, err
}

func wrapLookup(rec *model.IngestionRecord, err error) (*model.IngestionRecord, error) {
	if err != nil && !errors.Is(err, model.ErrPayloadNotFound) {
		return nil, model.NewStorageError("find payload", err)
	}
	return rec, err
}
