package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/career"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/ranking"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/names"
)

func scope(sel model.Selector) string {
	if sel.Career {
		return "career"
	}
	return "season"
}

// Dataset returns the driver records addressed by sel. The career view is
// folded from all seasons unless a career cache is configured, a cached
// view must not be modified.
func (s *Service) Dataset(ctx context.Context, sel model.Selector) (model.Drivers, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Dataset")
	defer span.End()
	span.SetAttributes(attribute.String("selector", sel.String()))
	if !sel.Career {
		if sel.Season == "" {
			sel.Season = s.CurrentSeason()
		}
		unlock := s.locks.RLock(seasonKey(sel.Season))
		defer unlock()
		season, err := s.repos.Season().Load(ctx, sel.Season)
		if err != nil {
			return nil, err
		}
		return season.Drivers, nil
	}

	if s.career == nil {
		return s.loadCareer(ctx, careerKey)
	}
	return s.career.Get(ctx, careerKey)
}

// loadCareer folds all seasons. Seasons deleted after listing are skipped.
func (s *Service) loadCareer(ctx context.Context, _ string) (model.Drivers, error) {
	all, err := s.repos.Season().List(ctx)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.RLockAll(seasonKeys(all)...)
	defer unlock()
	seasons := make([]*model.Season, 0, len(all))
	for _, name := range all {
		season, err := s.repos.Season().Load(ctx, name)
		if errors.Is(err, model.ErrSeasonNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	s.log.Debug("career view rebuilt", log.Int("seasons", len(seasons)))
	return career.Aggregate(seasons), nil
}

// Rank orders the drivers of sel by metric and returns the requested page.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Rank(
	ctx context.Context,
	sel model.Selector,
	metric ranking.Metric,
	req ranking.Request,
) (*ranking.Page, error) {
	start := time.Now()
	defer func() { s.metrics.RecordQuery("rank", scope(sel), time.Since(start)) }()
	drivers, err := s.Dataset(ctx, sel)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(drivers, metric, req)
}

type DriverResult struct {
	Record    *model.DriverRecord `json:"record"`
	MatchedBy string              `json:"matchedBy"`
}

// GetDriver looks up a driver by name using the ordered name matching.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) GetDriver(
	ctx context.Context,
	sel model.Selector,
	name string,
) (*DriverResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordQuery("driver", scope(sel), time.Since(start)) }()
	drivers, err := s.Dataset(ctx, sel)
	if err != nil {
		return nil, err
	}
	all := drivers.Names()
	idx, used, ok := names.Match(name, all)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrDriverNotFound, name)
	}
	return &DriverResult{Record: drivers[all[idx]], MatchedBy: used.String()}, nil
}

type SearchResult struct {
	Exact   []string `json:"exact"`
	Similar []string `json:"similar"`
}

// FindDrivers returns the driver names equal or similar to query.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) FindDrivers(
	ctx context.Context,
	sel model.Selector,
	query string,
) (*SearchResult, error) {
	drivers, err := s.Dataset(ctx, sel)
	if err != nil {
		return nil, err
	}
	exact, similar := names.Find(query, drivers.Names())
	return &SearchResult{Exact: exact, Similar: similar}, nil
}
