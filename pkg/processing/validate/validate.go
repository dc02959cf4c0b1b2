// Package validate checks the bookkeeping invariants of driver records.
package validate

import (
	"fmt"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

//nolint:whitespace // can't make both editor and linter happy
func warn(
	kind model.WarningKind,
	season string,
	d *model.DriverRecord,
	format string,
	args ...any,
) model.ValidationWarning {
	return model.ValidationWarning{
		Kind:    kind,
		Season:  season,
		Driver:  d.Name,
		Message: fmt.Sprintf(format, args...),
	}
}

// Record checks the counter invariants of d.
//
//nolint:cyclop // one check per invariant
func Record(season string, d *model.DriverRecord) []model.ValidationWarning {
	ret := []model.ValidationWarning{}
	counters := map[string]int{
		"races": d.Races, "wins": d.Wins, "podiums": d.Podiums, "top10s": d.Top10s,
		"poles": d.Poles, "fastestLaps": d.FastestLaps,
		"lapsComplete": d.LapsComplete, "lapsLead": d.LapsLead,
	}
	for _, key := range []string{
		"races", "wins", "podiums", "top10s", "poles", "fastestLaps", "lapsComplete", "lapsLead",
	} {
		if counters[key] < 0 {
			ret = append(ret, warn(model.WarnNegativeCounter, season, d,
				"%s is negative (%d)", key, counters[key]))
		}
	}
	if d.Wins > d.Podiums || d.Podiums > d.Top10s || d.Top10s > d.Races {
		ret = append(ret, warn(model.WarnCounterOrder, season, d,
			"expected wins <= podiums <= top10s <= races, got %d/%d/%d/%d",
			d.Wins, d.Podiums, d.Top10s, d.Races))
	}
	if d.Poles > d.Races || d.FastestLaps > d.Races {
		ret = append(ret, warn(model.WarnCounterOrder, season, d,
			"poles (%d) or fastest laps (%d) exceed races (%d)",
			d.Poles, d.FastestLaps, d.Races))
	}
	if d.LapsLead > d.LapsComplete {
		ret = append(ret, warn(model.WarnLapsLead, season, d,
			"laps lead (%d) exceed laps complete (%d)", d.LapsLead, d.LapsComplete))
	}
	if len(d.RaceDistances) != d.Races {
		ret = append(ret, warn(model.WarnRaceDistances, season, d,
			"%d race distances for %d races", len(d.RaceDistances), d.Races))
	}
	if d.RacesWeighted > d.Races || d.FinishWeighted > d.RacesWeighted {
		ret = append(ret, warn(model.WarnWeights, season, d,
			"inconsistent weights %d/%d for %d races",
			d.RacesWeighted, d.FinishWeighted, d.Races))
	}
	return ret
}

// Full runs Record and additionally reports records whose history does not
// cover every race. Those can only be reversed approximately.
func Full(season string, d *model.DriverRecord) []model.ValidationWarning {
	ret := Record(season, d)
	if !d.HasFullHistory() {
		ret = append(ret, warn(model.WarnIncompleteLedger, season, d,
			"history covers %d of %d races", len(d.History), d.Races))
	}
	return ret
}

// Season validates all drivers of s in name order.
func Season(s *model.Season) []model.ValidationWarning {
	ret := []model.ValidationWarning{}
	for _, name := range s.Drivers.Names() {
		ret = append(ret, Full(s.Name, s.Drivers[name])...)
	}
	return ret
}
