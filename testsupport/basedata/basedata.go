// Package basedata builds event result documents for tests.
package basedata

import (
	"encoding/json"
	"log"
)

// Row describes one result row. Positions are 0-based as in the iRacing data.
// Finish -1 marks an unknown finish, a nil Start omits starting_position.
type Row struct {
	Name         string
	Country      string
	Finish       int
	Start        *int
	Incidents    float64
	Points       float64
	LapsComplete int
	LapsLead     int
	BestLapTime  float64
}

type QualifyRow struct {
	Name    string
	Finish  int
	BestLap float64
}

func Pos(p int) *int {
	return &p
}

func (r Row) toMap() map[string]any {
	ret := map[string]any{
		"display_name":    r.Name,
		"country_code":    r.Country,
		"finish_position": r.Finish,
		"incidents":       r.Incidents,
		"champ_points":    r.Points,
		"laps_complete":   r.LapsComplete,
		"laps_lead":       r.LapsLead,
		"best_lap_time":   r.BestLapTime,
		"average_lap":     r.BestLapTime,
	}
	if r.Start != nil {
		ret["starting_position"] = *r.Start
	}
	return ret
}

// RacePayload returns a document with a single RACE session.
// The subsession id makes otherwise identical documents differ.
func RacePayload(subsessionID int, rows ...Row) []byte {
	return RaceWithQualify(subsessionID, rows, nil)
}

// RaceWithQualify returns a document with a QUALIFY and a RACE session.
func RaceWithQualify(subsessionID int, race []Row, qualify []QualifyRow) []byte {
	sessions := []any{}
	if qualify != nil {
		qRows := make([]any, 0, len(qualify))
		for _, q := range qualify {
			qRows = append(qRows, map[string]any{
				"display_name":       q.Name,
				"finish_position":    q.Finish,
				"best_qual_lap_time": q.BestLap,
			})
		}
		sessions = append(sessions, map[string]any{
			"simsession_name": "QUALIFY",
			"results":         qRows,
		})
	}
	rRows := make([]any, 0, len(race))
	for _, r := range race {
		rRows = append(rRows, r.toMap())
	}
	sessions = append(sessions, map[string]any{
		"simsession_name": "RACE",
		"results":         rRows,
	})
	doc := map[string]any{
		"type": "event_result",
		"data": map[string]any{
			"subsession_id":   subsessionID,
			"session_results": sessions,
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		log.Fatalf("RacePayload: %v\n", err)
	}
	return data
}

// AliceAndBob is a two driver race: Alice wins from P2, Bob starts from pole.
func AliceAndBob() []byte {
	return RacePayload(1,
		Row{
			Name: "Alice", Country: "US", Finish: 0, Start: Pos(1), Points: 25,
			LapsComplete: 20, LapsLead: 15, BestLapTime: 905000,
		},
		Row{
			Name: "Bob", Country: "DE", Finish: 1, Start: Pos(0), Points: 18,
			Incidents: 2, LapsComplete: 20, LapsLead: 5, BestLapTime: 907500,
		},
	)
}

// FinishOnly is a race with a single driver finishing at the given 0-based position.
func FinishOnly(subsessionID int, name string, finish int) []byte {
	return RacePayload(subsessionID, Row{
		Name: name, Finish: finish, Start: Pos(finish), LapsComplete: 10, BestLapTime: 900000,
	})
}
