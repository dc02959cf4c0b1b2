package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/validate"
)

func (s *Service) ListSeasons(ctx context.Context) ([]model.SeasonInfo, error) {
	all, err := s.repos.Season().List(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.repos.Payload().LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	races := map[string]int{}
	for _, rec := range recs {
		for _, name := range rec.Seasons {
			races[name]++
		}
	}
	current := s.CurrentSeason()
	ret := make([]model.SeasonInfo, 0, len(all))
	for _, name := range all {
		unlock := s.locks.RLock(seasonKey(name))
		season, err := s.repos.Season().Load(ctx, name)
		unlock()
		if errors.Is(err, model.ErrSeasonNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, model.SeasonInfo{
			Name:    name,
			Drivers: len(season.Drivers),
			Races:   races[name],
			Current: name == current,
		})
	}
	return ret, nil
}

func (s *Service) CreateSeason(ctx context.Context, name string) error {
	unlock := s.locks.Lock(seasonKey(name))
	defer unlock()
	if err := s.repos.Season().Create(ctx, name); err != nil {
		return err
	}
	s.log.Info("season created", log.String("season", name))
	s.notify(notify.SeasonCreated, []string{name}, "", "")
	return nil
}

// DeleteSeason deletes a season with all its records. The current season
// cannot be deleted.
func (s *Service) DeleteSeason(ctx context.Context, name string) error {
	if name == s.CurrentSeason() {
		return fmt.Errorf("%w: %s", model.ErrCurrentSeason, name)
	}
	unlock := s.locks.Lock(seasonKey(name))
	defer unlock()
	if err := s.repos.Season().Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info("season deleted", log.String("season", name))
	s.notify(notify.SeasonDeleted, []string{name}, "", "")
	return nil
}

// RenameSeason renames a season. If it is the current season the current
// season follows the rename.
func (s *Service) RenameSeason(ctx context.Context, from, to string) error {
	unlock := s.locks.LockAll(seasonKey(from), seasonKey(to))
	defer unlock()
	if err := s.repos.Season().Rename(ctx, from, to); err != nil {
		return err
	}
	s.mu.Lock()
	if s.currentSeason == from {
		s.currentSeason = to
	}
	s.mu.Unlock()
	s.log.Info("season renamed", log.String("from", from), log.String("to", to))
	s.notify(notify.SeasonRenamed, []string{to}, "", from)
	return nil
}

// SetCurrentSeason changes the current season, the season must exist.
func (s *Service) SetCurrentSeason(ctx context.Context, name string) error {
	ok, err := s.repos.Season().Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrSeasonNotFound, name)
	}
	s.setCurrent(name)
	return nil
}

// WipeDriver removes the driver with exactly this name from all seasons.
// Returns the seasons the driver was removed from.
func (s *Service) WipeDriver(ctx context.Context, name string) ([]string, error) {
	all, err := s.repos.Season().List(ctx)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.LockAll(seasonKeys(all)...)
	defer unlock()
	ret := []string{}
	for _, seasonName := range all {
		season, err := s.repos.Season().Load(ctx, seasonName)
		if err != nil {
			return ret, err
		}
		if _, ok := season.Drivers[name]; !ok {
			continue
		}
		drivers := season.Drivers.Clone()
		delete(drivers, name)
		if err := s.repos.Season().Save(ctx,
			&model.Season{Name: seasonName, Drivers: drivers}); err != nil {
			if len(ret) > 0 {
				s.notify(notify.SeasonUpdated, ret, "", "")
			}
			return ret, err
		}
		ret = append(ret, seasonName)
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("%w: %q", model.ErrDriverNotFound, name)
	}
	s.log.Info("driver wiped", log.String("driver", name), log.Strings("seasons", ret))
	s.notify(notify.SeasonUpdated, ret, "", "")
	return ret, nil
}

// Validate checks all records of all seasons.
func (s *Service) Validate(ctx context.Context) ([]model.ValidationWarning, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Validate")
	defer span.End()
	all, err := s.repos.Season().List(ctx)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.RLockAll(seasonKeys(all)...)
	defer unlock()
	ret := []model.ValidationWarning{}
	for _, name := range all {
		season, err := s.repos.Season().Load(ctx, name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, validate.Season(season)...)
	}
	lo.ForEach(ret, func(w model.ValidationWarning, _ int) {
		s.metrics.RecordWarning(string(w.Kind))
	})
	return ret, nil
}
