package payload

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
	"github.com/mpapenbr/iracelog-league-stats/testsupport/basedata"
)

func TestParseAliceAndBob(t *testing.T) {
	raw := basedata.AliceAndBob()
	p, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, utils.HashContent(raw), p.Digest)
	want := []model.ResultRow{
		{
			Name: "Alice", Country: "us", Finish: 1, Start: 2, Points: 25,
			LapsComplete: 20, LapsLead: 15, BestLapTime: 905000, AverageLap: 905000,
		},
		{
			Name: "Bob", Country: "de", Finish: 2, Start: 1, Points: 18, Incidents: 2,
			LapsComplete: 20, LapsLead: 5, BestLapTime: 907500, AverageLap: 907500,
		},
	}
	if diff := cmp.Diff(want, p.Race); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, p.Qualify)
	assert.Equal(t, 20, p.Distance())
	assert.InDelta(t, 905000.0, p.FastestLap(), 0.0001)
}

func TestParseQualifyAndUnknownValues(t *testing.T) {
	raw := basedata.RaceWithQualify(7,
		[]basedata.Row{
			{Name: "  Carl  ", Finish: -1, LapsComplete: 3, BestLapTime: -1},
			{Name: "", Finish: 0},
			{Name: "Dora", Finish: 0, Start: basedata.Pos(-1)},
		},
		[]basedata.QualifyRow{
			{Name: "Carl", Finish: 2, BestLap: 901000},
			{Name: "Dora", Finish: 0, BestLap: 900000},
		})
	p, err := Parse(raw)
	assert.NoError(t, err)
	assert.Len(t, p.Race, 2)
	assert.Equal(t, "Carl", p.Race[0].Name)
	assert.Equal(t, 0, p.Race[0].Finish)
	assert.Equal(t, 0, p.Race[0].Start)
	assert.Equal(t, 0, p.Race[1].Start)
	assert.Equal(t, model.QualifyRow{Name: "Carl", Finish: 3, BestQualLapTime: 901000}, p.Qualify["Carl"])
	assert.Equal(t, 1, p.Qualify["Dora"].Finish)
	assert.Equal(t, 0.0, p.FastestLap())
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"data":`},
		{"not an object", `[1,2,3]`},
		{"no data", `{"type":"event_result"}`},
		{"sessions not a list", `{"data":{"session_results":{}}}`},
		{"no race session", `{"data":{"session_results":[{"simsession_name":"PRACTICE","results":[]}]}}`},
		{"results not a list", `{"data":{"session_results":[{"simsession_name":"RACE","results":5}]}}`},
		{"row not an object", `{"data":{"session_results":[{"simsession_name":"race","results":[1]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.True(t, errors.Is(err, model.ErrMalformedPayload), "got %v", err)
		})
	}
}

func TestParseRaceCaseInsensitive(t *testing.T) {
	raw := `{"data":{"session_results":[
		{"simsession_name":"Race","results":[{"display_name":"Eve","finish_position":4,"starting_position":2.0}]}
	]}}`
	p, err := Parse([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, 5, p.Race[0].Finish)
	assert.Equal(t, 3, p.Race[0].Start)
}
