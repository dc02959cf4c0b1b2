// Package career folds the driver records of all seasons into one view.
package career

import (
	"github.com/samber/lo"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

// Aggregate builds the career records. Averages are weighted by each
// season's own weights, so the order of seasons does not matter.
// The result is never persisted and carries no ledger.
func Aggregate(seasons []*model.Season) model.Drivers {
	ret := model.Drivers{}
	for _, s := range lo.Compact(seasons) {
		for _, name := range s.Drivers.Names() {
			d := s.Drivers[name]
			if d == nil {
				continue
			}
			c, ok := ret[name]
			if !ok {
				c = model.NewDriverRecord(name)
				ret[name] = c
			}
			Fold(c, d)
		}
	}
	return ret
}

// Fold adds the season record d to the career record c.
func Fold(c, d *model.DriverRecord) {
	if c.Country == "" {
		c.Country = d.Country
	}
	c.Races += d.Races
	c.Wins += d.Wins
	c.Podiums += d.Podiums
	c.Top10s += d.Top10s
	c.Poles += d.Poles
	c.FastestLaps += d.FastestLaps
	c.LapsComplete += d.LapsComplete
	c.LapsLead += d.LapsLead
	c.Points += d.Points
	c.PositionChange += d.PositionChange

	c.AvgIncidents = model.WeightedMean(c.AvgIncidents, c.RacesWeighted,
		d.AvgIncidents, d.RacesWeighted)
	c.AvgStart = model.WeightedMean(c.AvgStart, c.RacesWeighted,
		d.AvgStart, d.RacesWeighted)
	c.RacesWeighted += d.RacesWeighted
	c.AvgFinish = model.WeightedMean(c.AvgFinish, c.FinishWeighted,
		d.AvgFinish, d.FinishWeighted)
	c.FinishWeighted += d.FinishWeighted
	c.RaceDistances = append(c.RaceDistances, d.RaceDistances...)
}
