package model

import (
	"encoding/json"
	"strings"
)

// CurrentSchemaVersion is written with every persisted driver record.
// Records without a version are read as the legacy snake_case layout.
const CurrentSchemaVersion = 2

type StartSource string

const (
	StartFromRace       StartSource = "race"
	StartFromQualifying StartSource = "qualifying"
	StartEstimated      StartSource = "estimated"
)

// RaceEntry holds the values one race contributed to a driver record.
// Positions are 1-based, Finish is 0 when the finish position is unknown.
type RaceEntry struct {
	Payload      string      `json:"payload"`
	Finish       int         `json:"finish"`
	Start        int         `json:"start"`
	StartSource  StartSource `json:"startSource"`
	Incidents    float64     `json:"incidents"`
	Points       float64     `json:"points"`
	LapsComplete int         `json:"lapsComplete"`
	LapsLead     int         `json:"lapsLead"`
	Distance     int         `json:"distance"`
	FastestLap   bool        `json:"fastestLap,omitempty"`
}

func (e RaceEntry) FinishKnown() bool {
	return e.Finish > 0
}

// Win, Podium and Top10 are only counted for a known finish
func (e RaceEntry) Win() bool    { return e.Finish == 1 }
func (e RaceEntry) Podium() bool { return e.FinishKnown() && e.Finish <= 3 }
func (e RaceEntry) Top10() bool  { return e.FinishKnown() && e.Finish <= 10 }
func (e RaceEntry) Pole() bool   { return e.Start == 1 }

// PositionChange is start minus finish, 0 for an unknown finish
func (e RaceEntry) PositionChange() float64 {
	if !e.FinishKnown() {
		return 0
	}
	return float64(e.Start - e.Finish)
}

// DriverRecord is the per season (or career) statistic of one driver.
type DriverRecord struct {
	SchemaVersion  int     `json:"schemaVersion"`
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	Races          int     `json:"races"`
	Wins           int     `json:"wins"`
	Podiums        int     `json:"podiums"`
	Top10s         int     `json:"top10s"`
	Poles          int     `json:"poles"`
	FastestLaps    int     `json:"fastestLaps"`
	LapsComplete   int     `json:"lapsComplete"`
	LapsLead       int     `json:"lapsLead"`
	Points         float64 `json:"points"`
	PositionChange float64 `json:"positionChange"`
	AvgIncidents   float64 `json:"avgIncidents"`
	AvgStart       float64 `json:"avgStart"`
	AvgFinish      float64 `json:"avgFinish"`
	// weight of AvgIncidents and AvgStart
	RacesWeighted int `json:"racesWeighted"`
	// weight of AvgFinish (races with a known finish)
	FinishWeighted int         `json:"finishWeighted"`
	RaceDistances  []int       `json:"raceDistances"`
	History        []RaceEntry `json:"history,omitempty"`
}

func NewDriverRecord(name string) *DriverRecord {
	return &DriverRecord{
		SchemaVersion: CurrentSchemaVersion,
		Name:          strings.TrimSpace(name),
		RaceDistances: []int{},
	}
}

func (d *DriverRecord) Clone() *DriverRecord {
	if d == nil {
		return nil
	}
	ret := *d
	ret.RaceDistances = append([]int{}, d.RaceDistances...)
	if d.History != nil {
		ret.History = append([]RaceEntry{}, d.History...)
	}
	return &ret
}

// HasFullHistory reports whether every counted race is backed by a ledger entry.
func (d *DriverRecord) HasFullHistory() bool {
	return len(d.History) == d.Races
}

func (d *DriverRecord) TotalDistance() int {
	sum := 0
	for _, v := range d.RaceDistances {
		sum += v
	}
	return sum
}

func pct(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

func (d *DriverRecord) WinPct() float64 {
	return pct(float64(d.Wins), float64(d.Races))
}

func (d *DriverRecord) PodiumPct() float64 {
	return pct(float64(d.Podiums), float64(d.Races))
}

func (d *DriverRecord) PolePct() float64 {
	return pct(float64(d.Poles), float64(d.Races))
}

func (d *DriverRecord) Top10Pct() float64 {
	return pct(float64(d.Top10s), float64(d.Races))
}

func (d *DriverRecord) LapCompletionPct() float64 {
	return pct(float64(d.LapsComplete), float64(d.TotalDistance()))
}

func (d *DriverRecord) LapLeadPct() float64 {
	return pct(float64(d.LapsLead), float64(d.TotalDistance()))
}

// legacyDriverRecord is the unversioned layout written by earlier releases.
type legacyDriverRecord struct {
	Name          string  `json:"name"`
	Country       string  `json:"country"`
	Races         int     `json:"races"`
	Wins          int     `json:"wins"`
	Podiums       int     `json:"podiums"`
	Top10s        *int    `json:"top10s"`
	Top5s         *int    `json:"top5s"`
	Top5          *int    `json:"top5"`
	Poles         int     `json:"poles"`
	Points        float64 `json:"points"`
	AvgIncidents  float64 `json:"avg_incidents"`
	AvgStart      float64 `json:"avg_start"`
	AvgFinish     float64 `json:"avg_finish"`
	Weight        *int    `json:"_rp"`
	FastestLaps   int     `json:"fastest_laps"`
	LapsComplete  int     `json:"laps_complete"`
	LapsLead      int     `json:"laps_lead"`
	PosChange     float64 `json:"position_change"`
	RaceDistances []int   `json:"race_distances"`
}

type versionProbe struct {
	SchemaVersion int `json:"schemaVersion"`
}

// UnmarshalJSON decodes both the current layout and the legacy one.
// Legacy records are migrated once while decoding.
func (d *DriverRecord) UnmarshalJSON(data []byte) error {
	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.SchemaVersion > 0 {
		type plain DriverRecord
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*d = DriverRecord(p)
		d.normalize()
		return nil
	}
	var legacy legacyDriverRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	*d = legacy.migrate()
	return nil
}

func (l *legacyDriverRecord) migrate() DriverRecord {
	ret := DriverRecord{
		SchemaVersion:  CurrentSchemaVersion,
		Name:           strings.TrimSpace(l.Name),
		Country:        l.Country,
		Races:          l.Races,
		Wins:           l.Wins,
		Podiums:        l.Podiums,
		Poles:          l.Poles,
		FastestLaps:    l.FastestLaps,
		LapsComplete:   l.LapsComplete,
		LapsLead:       l.LapsLead,
		Points:         l.Points,
		PositionChange: l.PosChange,
		AvgIncidents:   l.AvgIncidents,
		AvgStart:       l.AvgStart,
		AvgFinish:      l.AvgFinish,
		RaceDistances:  append([]int{}, l.RaceDistances...),
	}
	switch {
	case l.Top10s != nil:
		ret.Top10s = *l.Top10s
	case l.Top5s != nil:
		ret.Top10s = *l.Top5s
	case l.Top5 != nil:
		ret.Top10s = *l.Top5
	}
	// records without a weight were averaged per race
	weight := l.Races
	if l.Weight != nil {
		weight = *l.Weight
	}
	ret.RacesWeighted = weight
	ret.FinishWeighted = weight
	ret.normalize()
	return ret
}

func (d *DriverRecord) normalize() {
	if d.SchemaVersion < CurrentSchemaVersion {
		d.SchemaVersion = CurrentSchemaVersion
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.RaceDistances == nil {
		d.RaceDistances = []int{}
	}
	// unknown distances of migrated races count as 0
	for len(d.RaceDistances) < d.Races {
		d.RaceDistances = append(d.RaceDistances, 0)
	}
	if d.RacesWeighted > d.Races {
		d.RacesWeighted = d.Races
	}
	if d.FinishWeighted > d.Races {
		d.FinishWeighted = d.Races
	}
}
