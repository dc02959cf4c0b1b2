// Package payload extracts race and qualifying rows from an iRacing
// event result document.
package payload

import (
	"math"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

const (
	sessionRace    = "RACE"
	sessionQualify = "QUALIFY"
)

var (
	sessionsPath = jp.MustParseString("$.data.session_results")
	resultsPath  = jp.C("results")
)

// Parse parses raw and returns the rows of the first RACE session.
// A document without a RACE session yields model.ErrMalformedPayload.
func Parse(raw []byte) (*model.RacePayload, error) {
	obj, err := oj.Parse(raw)
	if err != nil {
		return nil, model.MalformedPayload("invalid json: %v", err)
	}
	if _, ok := obj.(map[string]any); !ok {
		return nil, model.MalformedPayload("document is not an object")
	}
	found := sessionsPath.Get(obj)
	if len(found) == 0 {
		return nil, model.MalformedPayload("no data.session_results found")
	}
	sessions, ok := found[0].([]any)
	if !ok {
		return nil, model.MalformedPayload("data.session_results is not a list")
	}

	ret := &model.RacePayload{
		Digest:  utils.HashContent(raw),
		Qualify: map[string]model.QualifyRow{},
	}
	var race, qualify map[string]any
	for _, s := range sessions {
		session, ok := s.(map[string]any)
		if !ok {
			continue
		}
		name, _ := session["simsession_name"].(string)
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case sessionRace:
			if race == nil {
				race = session
			}
		case sessionQualify:
			if qualify == nil {
				qualify = session
			}
		}
	}
	if race == nil {
		return nil, model.MalformedPayload("no RACE session found")
	}

	rows, err := sessionRows(race)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		r := raceRow(row)
		if r.Name == "" {
			continue
		}
		ret.Race = append(ret.Race, r)
	}

	if qualify != nil {
		// qualifying data is optional, a broken session is ignored
		if qRows, err := sessionRows(qualify); err == nil {
			for _, row := range qRows {
				q := qualifyRow(row)
				if q.Name == "" {
					continue
				}
				if _, exists := ret.Qualify[q.Name]; !exists {
					ret.Qualify[q.Name] = q
				}
			}
		}
	}
	return ret, nil
}

func sessionRows(session map[string]any) ([]map[string]any, error) {
	found := resultsPath.Get(session)
	if len(found) == 0 || found[0] == nil {
		return []map[string]any{}, nil
	}
	list, ok := found[0].([]any)
	if !ok {
		return nil, model.MalformedPayload("session results is not a list")
	}
	ret := make([]map[string]any, 0, len(list))
	for i := range list {
		row, ok := list[i].(map[string]any)
		if !ok {
			return nil, model.MalformedPayload("result row %d is not an object", i)
		}
		ret = append(ret, row)
	}
	return ret, nil
}

func raceRow(row map[string]any) model.ResultRow {
	return model.ResultRow{
		Name:         stringValue(row["display_name"]),
		Country:      strings.ToLower(stringValue(row["country_code"])),
		Finish:       position(row["finish_position"]),
		Start:        position(row["starting_position"]),
		Incidents:    floatValue(row["incidents"]),
		Points:       floatValue(row["champ_points"]),
		LapsComplete: nonNegative(row["laps_complete"]),
		LapsLead:     nonNegative(row["laps_lead"]),
		BestLapTime:  floatValue(row["best_lap_time"]),
		AverageLap:   floatValue(row["average_lap"]),
	}
}

func qualifyRow(row map[string]any) model.QualifyRow {
	return model.QualifyRow{
		Name:            stringValue(row["display_name"]),
		Finish:          position(row["finish_position"]),
		BestQualLapTime: floatValue(row["best_qual_lap_time"]),
	}
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatValue(v any) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		return val
	}
	return 0
}

func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int64:
		return int(val), true
	case float64:
		if val == math.Trunc(val) {
			return int(val), true
		}
	}
	return 0, false
}

// position converts a 0-based position into a 1-based one, 0 means unknown
func position(v any) int {
	if p, ok := intValue(v); ok && p >= 0 {
		return p + 1
	}
	return 0
}

func nonNegative(v any) int {
	if i, ok := intValue(v); ok && i > 0 {
		return i
	}
	return 0
}
