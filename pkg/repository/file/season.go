package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

type seasonRepo struct {
	store *Store
}

func (r *seasonRepo) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.store.seasonsPath())
	if err != nil {
		return nil, model.NewStorageError("list seasons", err)
	}
	ret := []string{}
	for _, e := range entries {
		if e.IsDir() && model.ValidSeasonName(e.Name()) {
			ret = append(ret, e.Name())
		}
	}
	sort.Strings(ret)
	return ret, nil
}

func (r *seasonRepo) Exists(ctx context.Context, name string) (bool, error) {
	if !model.ValidSeasonName(name) {
		return false, nil
	}
	fi, err := os.Stat(r.store.seasonPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, model.NewStorageError("stat season", err)
	}
	return fi.IsDir(), nil
}

func (r *seasonRepo) Create(ctx context.Context, name string) error {
	if !model.ValidSeasonName(name) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, name)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := os.Mkdir(r.store.seasonPath(name), 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", model.ErrSeasonExists, name)
		}
		return model.NewStorageError("create season", err)
	}
	data, _ := encodeDrivers(model.Drivers{})
	tx := r.store.begin()
	if err := tx.write(r.store.driversPath(name), data); err != nil {
		tx.abort()
		return model.NewStorageError("create season", err)
	}
	if err := tx.commit(); err != nil {
		return model.NewStorageError("create season", err)
	}
	return nil
}

func (r *seasonRepo) Load(ctx context.Context, name string) (*model.Season, error) {
	if !model.ValidSeasonName(name) {
		return nil, fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	drivers := model.Drivers{}
	data, err := r.store.readFile(r.store.driversPath(name))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// season directory without data yet
	case err != nil:
		return nil, model.NewStorageError("load season", err)
	default:
		if err := json.Unmarshal(data, &drivers); err != nil {
			return nil, model.NewStorageError("load season",
				fmt.Errorf("decode %s: %w", name, err))
		}
	}
	for key, d := range drivers {
		if d == nil {
			delete(drivers, key)
			continue
		}
		// legacy files only carry the name as map key
		if d.Name == "" {
			d.Name = key
		}
	}
	return &model.Season{Name: name, Drivers: drivers}, nil
}

func (r *seasonRepo) Save(ctx context.Context, season *model.Season) error {
	if !model.ValidSeasonName(season.Name) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, season.Name)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx := r.store.begin()
	if err := r.store.stageSeasons(tx, []*model.Season{season}); err != nil {
		tx.abort()
		return model.NewStorageError("save season", err)
	}
	if err := tx.commit(); err != nil {
		return model.NewStorageError("save season", err)
	}
	return nil
}

func (r *seasonRepo) Delete(ctx context.Context, name string) error {
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := os.RemoveAll(r.store.seasonPath(name)); err != nil {
		return model.NewStorageError("delete season", err)
	}
	err = r.store.updateIndex(func(recs []*model.IngestionRecord) []*model.IngestionRecord {
		for _, rec := range recs {
			rec.Seasons = lo.Without(rec.Seasons, name)
		}
		return recs
	})
	if err != nil {
		return model.NewStorageError("delete season", err)
	}
	return nil
}

func (r *seasonRepo) Rename(ctx context.Context, from, to string) error {
	if !model.ValidSeasonName(to) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, to)
	}
	ok, err := r.Exists(ctx, from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrSeasonNotFound, from)
	}
	if ok, err = r.Exists(ctx, to); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", model.ErrSeasonExists, to)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := os.Rename(r.store.seasonPath(from), r.store.seasonPath(to)); err != nil {
		return model.NewStorageError("rename season", err)
	}
	err = r.store.updateIndex(func(recs []*model.IngestionRecord) []*model.IngestionRecord {
		for _, rec := range recs {
			rec.Seasons = lo.Map(rec.Seasons, func(s string, _ int) string {
				if s == from {
					return to
				}
				return s
			})
		}
		return recs
	})
	if err != nil {
		return model.NewStorageError("rename season", err)
	}
	return nil
}
