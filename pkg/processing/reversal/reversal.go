// Package reversal removes the contribution of a previously applied payload
// from the driver records of a season.
package reversal

import (
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/season"
)

type Result struct {
	Changed        bool
	DriversChanged []string
	DriversRemoved []string
	// drivers without ledger entry for the payload, reverted approximately
	Approximated []string
}

// References reports whether any record of drivers holds a ledger entry of digest.
func References(drivers model.Drivers, digest string) bool {
	for _, d := range drivers {
		if findEntry(d, digest) >= 0 {
			return true
		}
	}
	return false
}

// Revert removes p from drivers (modified in place).
//
// Records with a ledger entry for p are reverted with the values stored in
// that entry and their averages are recomputed from the remaining ledger.
// Records without ledger entries (migrated data) are reverted with the
// values recomputed from p using the inverse of the running mean.
func Revert(drivers model.Drivers, p *model.RacePayload) Result {
	ret := Result{
		DriversChanged: []string{},
		DriversRemoved: []string{},
		Approximated:   []string{},
	}
	for _, delta := range season.Deltas(p) {
		d, ok := drivers[delta.Name]
		if !ok {
			continue
		}
		entry := delta.Entry
		idx := findEntry(d, p.Digest)
		switch {
		case idx >= 0:
			entry = d.History[idx]
			d.History = append(d.History[:idx], d.History[idx+1:]...)
		case d.HasFullHistory():
			// every race of this driver is known, p was not among them
			continue
		default:
			ret.Approximated = append(ret.Approximated, d.Name)
		}
		removeEntry(d, entry)
		ret.Changed = true
		if d.Races == 0 {
			delete(drivers, delta.Name)
			ret.DriversRemoved = append(ret.DriversRemoved, delta.Name)
		} else {
			ret.DriversChanged = append(ret.DriversChanged, delta.Name)
		}
	}
	return ret
}

func findEntry(d *model.DriverRecord, digest string) int {
	for i := range d.History {
		if d.History[i].Payload == digest {
			return i
		}
	}
	return -1
}

func decr(v *int, cond bool) {
	if cond && *v > 0 {
		*v--
	}
}

func sub(v *int, amount int) {
	*v -= amount
	if *v < 0 {
		*v = 0
	}
}

// removeEntry subtracts e from d. The ledger entry itself must already be
// removed from d.History.
func removeEntry(d *model.DriverRecord, e model.RaceEntry) {
	decr(&d.Races, true)
	decr(&d.Wins, e.Win())
	decr(&d.Podiums, e.Podium())
	decr(&d.Top10s, e.Top10())
	decr(&d.Poles, e.Pole())
	decr(&d.FastestLaps, e.FastestLap)
	sub(&d.LapsComplete, e.LapsComplete)
	sub(&d.LapsLead, e.LapsLead)
	d.Points -= e.Points
	if d.Points < 0 {
		d.Points = 0
	}
	d.PositionChange -= e.PositionChange()
	removeDistance(d, e.Distance)

	if d.HasFullHistory() {
		recompute(d)
		return
	}
	if d.RacesWeighted > 0 {
		d.AvgIncidents = model.RemoveFromMean(d.AvgIncidents, d.RacesWeighted, e.Incidents, 1)
		d.AvgStart = model.RemoveFromMean(d.AvgStart, d.RacesWeighted, float64(e.Start), 1)
		d.RacesWeighted--
	}
	if e.FinishKnown() && d.FinishWeighted > 0 {
		d.AvgFinish = model.RemoveFromMean(d.AvgFinish, d.FinishWeighted, float64(e.Finish), 1)
		d.FinishWeighted--
	}
	season.RoundAverages(d)
}

func removeDistance(d *model.DriverRecord, distance int) {
	for i := len(d.RaceDistances) - 1; i >= 0; i-- {
		if d.RaceDistances[i] == distance {
			d.RaceDistances = append(d.RaceDistances[:i], d.RaceDistances[i+1:]...)
			return
		}
	}
	if len(d.RaceDistances) > d.Races {
		d.RaceDistances = d.RaceDistances[:d.Races]
	}
}

// recompute rebuilds the averages from the ledger.
func recompute(d *model.DriverRecord) {
	d.AvgIncidents, d.AvgStart, d.AvgFinish = 0, 0, 0
	d.RacesWeighted, d.FinishWeighted = 0, 0
	for _, e := range d.History {
		d.AvgIncidents = model.WeightedMean(d.AvgIncidents, d.RacesWeighted, e.Incidents, 1)
		d.AvgStart = model.WeightedMean(d.AvgStart, d.RacesWeighted, float64(e.Start), 1)
		d.RacesWeighted++
		if e.FinishKnown() {
			d.AvgFinish = model.WeightedMean(d.AvgFinish, d.FinishWeighted, float64(e.Finish), 1)
			d.FinishWeighted++
		}
	}
	season.RoundAverages(d)
}
