// Package season folds the rows of one race into the driver records of a season.
package season

import (
	"fmt"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/validate"
)

// estimated start for drivers without start and finish position
const estimatedStartOffset = 5

// Delta is the contribution of one result row.
type Delta struct {
	Name    string
	Country string
	Entry   model.RaceEntry
	Warning *model.ValidationWarning
}

type Result struct {
	RowsProcessed  int
	DriversUpdated int
	Warnings       []model.ValidationWarning
}

// Deltas computes the per row contributions of p.
// The result only depends on p, so a reversal computes the same values.
func Deltas(p *model.RacePayload) []Delta {
	distance := p.Distance()
	fastest := p.FastestLap()
	fieldSize := len(p.Race)
	ret := make([]Delta, 0, len(p.Race))
	for i := range p.Race {
		row := &p.Race[i]
		if row.Name == "" {
			continue
		}
		entry := model.RaceEntry{
			Payload:      p.Digest,
			Finish:       row.Finish,
			Incidents:    row.Incidents,
			Points:       row.Points,
			LapsComplete: row.LapsComplete,
			LapsLead:     row.LapsLead,
			Distance:     distance,
			FastestLap:   fastest > 0 && row.BestLapTime == fastest,
		}
		d := Delta{Name: row.Name, Country: row.Country}
		entry.Start, entry.StartSource = resolveStart(row, p.Qualify, fieldSize)
		if entry.StartSource == model.StartEstimated {
			d.Warning = &model.ValidationWarning{
				Kind:   model.WarnEstimatedStart,
				Driver: row.Name,
				Message: fmt.Sprintf("no starting position available, assumed P%d",
					entry.Start),
			}
		}
		d.Entry = entry
		ret = append(ret, d)
	}
	return ret
}

//nolint:whitespace // can't make both editor and linter happy
func resolveStart(
	row *model.ResultRow,
	qualify map[string]model.QualifyRow,
	fieldSize int,
) (int, model.StartSource) {
	if row.Start > 0 {
		return row.Start, model.StartFromRace
	}
	if q, ok := qualify[row.Name]; ok && q.Finish > 0 {
		return q.Finish, model.StartFromQualifying
	}
	if row.Finish > 0 {
		return row.Finish + estimatedStartOffset, model.StartEstimated
	}
	return fieldSize, model.StartEstimated
}

// AddEntry adds one race to d.
func AddEntry(d *model.DriverRecord, e model.RaceEntry) {
	d.Races++
	if e.Win() {
		d.Wins++
	}
	if e.Podium() {
		d.Podiums++
	}
	if e.Top10() {
		d.Top10s++
	}
	if e.Pole() {
		d.Poles++
	}
	if e.FastestLap {
		d.FastestLaps++
	}
	d.Points += e.Points
	d.LapsComplete += e.LapsComplete
	d.LapsLead += e.LapsLead
	d.PositionChange += e.PositionChange()

	d.AvgIncidents = model.WeightedMean(d.AvgIncidents, d.RacesWeighted, e.Incidents, 1)
	d.AvgStart = model.WeightedMean(d.AvgStart, d.RacesWeighted, float64(e.Start), 1)
	d.RacesWeighted++
	if e.FinishKnown() {
		d.AvgFinish = model.WeightedMean(d.AvgFinish, d.FinishWeighted, float64(e.Finish), 1)
		d.FinishWeighted++
	}
	d.RaceDistances = append(d.RaceDistances, e.Distance)
	d.History = append(d.History, e)
}

// RoundAverages rounds the running averages to 3 decimals.
func RoundAverages(d *model.DriverRecord) {
	d.AvgIncidents = model.Round3(d.AvgIncidents)
	d.AvgStart = model.Round3(d.AvgStart)
	d.AvgFinish = model.Round3(d.AvgFinish)
}

// Apply folds p into drivers. drivers is modified in place, callers working
// on persisted data pass a copy.
func Apply(seasonName string, drivers model.Drivers, p *model.RacePayload) Result {
	ret := Result{Warnings: []model.ValidationWarning{}}
	touched := map[string]struct{}{}
	for _, delta := range Deltas(p) {
		ret.RowsProcessed++
		d, ok := drivers[delta.Name]
		if !ok {
			d = model.NewDriverRecord(delta.Name)
			drivers[delta.Name] = d
		}
		if d.Country == "" && delta.Country != "" {
			d.Country = delta.Country
		}
		AddEntry(d, delta.Entry)
		touched[delta.Name] = struct{}{}
		if delta.Warning != nil {
			w := *delta.Warning
			w.Season = seasonName
			ret.Warnings = append(ret.Warnings, w)
		}
	}
	// records not part of p keep their averages as stored
	for _, name := range drivers.Names() {
		if _, ok := touched[name]; ok {
			RoundAverages(drivers[name])
			ret.Warnings = append(ret.Warnings, validate.Record(seasonName, drivers[name])...)
		}
	}
	ret.DriversUpdated = len(touched)
	return ret
}
