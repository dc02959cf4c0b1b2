package model

// ResultRow is one driver row of the race session.
// Positions are converted to 1-based values, 0 means unknown/absent.
type ResultRow struct {
	Name         string
	Country      string
	Finish       int
	Start        int
	Incidents    float64
	Points       float64
	LapsComplete int
	LapsLead     int
	BestLapTime  float64
	AverageLap   float64
}

// QualifyRow is one driver row of the qualifying session.
type QualifyRow struct {
	Name            string
	Finish          int
	BestQualLapTime float64
}

// RacePayload is the parsed form of one session-result document.
type RacePayload struct {
	Digest  string
	Race    []ResultRow
	Qualify map[string]QualifyRow
}

// Distance is the maximum number of completed laps across all rows.
func (p *RacePayload) Distance() int {
	ret := 0
	for i := range p.Race {
		if p.Race[i].LapsComplete > ret {
			ret = p.Race[i].LapsComplete
		}
	}
	return ret
}

// FastestLap is the minimum positive best lap time, 0 if nobody set a lap.
func (p *RacePayload) FastestLap() float64 {
	ret := 0.0
	for i := range p.Race {
		v := p.Race[i].BestLapTime
		if v > 0 && (ret == 0 || v < ret) {
			ret = v
		}
	}
	return ret
}
