//nolint:funlen // ok for tests
package season

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/payload"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/validate"
	"github.com/mpapenbr/iracelog-league-stats/testsupport/basedata"
)

func parse(t *testing.T, raw []byte) *model.RacePayload {
	t.Helper()
	p, err := payload.Parse(raw)
	require.NoError(t, err)
	return p
}

func TestApplyAliceAndBob(t *testing.T) {
	drivers := model.Drivers{}
	res := Apply("S1", drivers, parse(t, basedata.AliceAndBob()))

	assert.Equal(t, 2, res.RowsProcessed)
	assert.Equal(t, 2, res.DriversUpdated)
	assert.Empty(t, res.Warnings)

	alice := drivers["Alice"]
	require.NotNil(t, alice)
	assert.Equal(t, 1, alice.Races)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 1, alice.Podiums)
	assert.Equal(t, 0, alice.Poles)
	assert.Equal(t, 25.0, alice.Points)
	assert.Equal(t, 1, alice.FastestLaps)
	assert.Equal(t, 2.0, alice.AvgStart)
	assert.Equal(t, 1.0, alice.AvgFinish)
	assert.Equal(t, 1.0, alice.PositionChange)
	assert.Equal(t, "us", alice.Country)
	assert.Equal(t, []int{20}, alice.RaceDistances)
	assert.Len(t, alice.History, 1)

	bob := drivers["Bob"]
	require.NotNil(t, bob)
	assert.Equal(t, 1, bob.Races)
	assert.Equal(t, 0, bob.Wins)
	assert.Equal(t, 1, bob.Podiums)
	assert.Equal(t, 1, bob.Poles)
	assert.Equal(t, 18.0, bob.Points)
	assert.Equal(t, 0, bob.FastestLaps)
	assert.Equal(t, 2.0, bob.AvgIncidents)
	assert.Equal(t, -1.0, bob.PositionChange)
	assert.Equal(t, 5, bob.LapsLead)
}

func TestWeightedAverageOrderIndependent(t *testing.T) {
	orders := [][]int{
		{2, 0, 4}, {0, 2, 4}, {4, 0, 2}, {4, 2, 0},
	}
	for _, order := range orders {
		drivers := model.Drivers{}
		for i, finish := range order {
			Apply("S1", drivers, parse(t, basedata.FinishOnly(i+1, "X", finish)))
		}
		x := drivers["X"]
		assert.Equal(t, 3, x.Races)
		assert.InDelta(t, 3.0, x.AvgFinish, 1e-9, "order %v", order)
		assert.InDelta(t, 3.0, x.AvgStart, 1e-9, "order %v", order)
		assert.Equal(t, 3, x.FinishWeighted)
	}
}

func TestAveragesRoundedPerPayload(t *testing.T) {
	drivers := model.Drivers{}
	for i, finish := range []int{0, 1, 1} {
		Apply("S1", drivers, parse(t, basedata.FinishOnly(i+1, "X", finish)))
	}
	// (1+2+2)/3
	assert.Equal(t, 1.667, drivers["X"].AvgFinish)
}

func TestUntouchedRecordsKeepPrecision(t *testing.T) {
	legacy := model.NewDriverRecord("Old")
	legacy.Races = 3
	legacy.RacesWeighted = 3
	legacy.FinishWeighted = 3
	legacy.RaceDistances = []int{10, 10, 10}
	legacy.AvgFinish = 4.123456
	legacy.AvgIncidents = 1.333333
	drivers := model.Drivers{"Old": legacy}

	Apply("S1", drivers, parse(t, basedata.FinishOnly(1, "X", 1)))
	assert.Equal(t, 4.123456, drivers["Old"].AvgFinish)
	assert.Equal(t, 1.333333, drivers["Old"].AvgIncidents)
}

func TestStartFallbacks(t *testing.T) {
	raw := basedata.RaceWithQualify(3,
		[]basedata.Row{
			{Name: "Quali", Finish: 0, LapsComplete: 10},
			{Name: "Guess", Finish: 1, LapsComplete: 10},
			{Name: "Nobody", Finish: -1, LapsComplete: 2},
		},
		[]basedata.QualifyRow{{Name: "Quali", Finish: 0, BestLap: 900000}},
	)
	p := parse(t, raw)
	deltas := Deltas(p)
	require.Len(t, deltas, 3)

	assert.Equal(t, 1, deltas[0].Entry.Start)
	assert.Equal(t, model.StartFromQualifying, deltas[0].Entry.StartSource)
	assert.Nil(t, deltas[0].Warning)

	assert.Equal(t, 7, deltas[1].Entry.Start)
	assert.Equal(t, model.StartEstimated, deltas[1].Entry.StartSource)
	require.NotNil(t, deltas[1].Warning)
	assert.Equal(t, model.WarnEstimatedStart, deltas[1].Warning.Kind)

	assert.Equal(t, 3, deltas[2].Entry.Start)
	assert.Equal(t, model.StartEstimated, deltas[2].Entry.StartSource)

	drivers := model.Drivers{}
	res := Apply("S1", drivers, p)
	assert.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.Equal(t, "S1", w.Season)
	}
	assert.Equal(t, 1, drivers["Quali"].Poles)
}

func TestUnknownFinish(t *testing.T) {
	drivers := model.Drivers{}
	Apply("S1", drivers, parse(t, basedata.FinishOnly(1, "X", 1)))
	Apply("S1", drivers, parse(t, basedata.RacePayload(2, basedata.Row{
		Name: "X", Finish: -1, Start: basedata.Pos(0), Incidents: 4, LapsComplete: 1,
	})))
	x := drivers["X"]
	assert.Equal(t, 2, x.Races)
	assert.Equal(t, 0, x.Wins)
	assert.Equal(t, 1, x.Podiums)
	assert.Equal(t, 2, x.RacesWeighted)
	assert.Equal(t, 1, x.FinishWeighted)
	assert.Equal(t, 2.0, x.AvgFinish)
	assert.Equal(t, 2.0, x.AvgIncidents)
	assert.Equal(t, 1.5, x.AvgStart)
	assert.Equal(t, 1, x.Poles)
	assert.Equal(t, 0.0, x.PositionChange)
}

func TestFastestLapTie(t *testing.T) {
	drivers := model.Drivers{}
	Apply("S1", drivers, parse(t, basedata.RacePayload(1,
		basedata.Row{Name: "A", Finish: 0, Start: basedata.Pos(0), BestLapTime: 900000},
		basedata.Row{Name: "B", Finish: 1, Start: basedata.Pos(1), BestLapTime: 900000},
		basedata.Row{Name: "C", Finish: 2, Start: basedata.Pos(2), BestLapTime: 910000},
		basedata.Row{Name: "D", Finish: 3, Start: basedata.Pos(3), BestLapTime: -1},
	)))
	assert.Equal(t, 1, drivers["A"].FastestLaps)
	assert.Equal(t, 1, drivers["B"].FastestLaps)
	assert.Equal(t, 0, drivers["C"].FastestLaps)
	assert.Equal(t, 0, drivers["D"].FastestLaps)
}

func TestRaceDistanceFromLeader(t *testing.T) {
	drivers := model.Drivers{}
	Apply("S1", drivers, parse(t, basedata.RacePayload(1,
		basedata.Row{Name: "A", Finish: 0, Start: basedata.Pos(0), LapsComplete: 30, LapsLead: 30},
		basedata.Row{Name: "B", Finish: 1, Start: basedata.Pos(1), LapsComplete: 15},
	)))
	assert.Equal(t, []int{30}, drivers["B"].RaceDistances)
	assert.InDelta(t, 50.0, drivers["B"].LapCompletionPct(), 1e-9)
	assert.InDelta(t, 100.0, drivers["A"].LapLeadPct(), 1e-9)
}

func TestLegacyRecordContinues(t *testing.T) {
	var legacy model.DriverRecord
	require.NoError(t, legacy.UnmarshalJSON([]byte(
		`{"country":"se","races":2,"wins":0,"podiums":1,"top5s":2,"poles":0,
		"points":30,"avg_incidents":1.5,"avg_start":4,"avg_finish":2.5,"_rp":2}`)))
	legacy.Name = "Old"
	drivers := model.Drivers{"Old": &legacy}
	Apply("S1", drivers, parse(t, basedata.FinishOnly(1, "Old", 0)))
	d := drivers["Old"]
	assert.Equal(t, 3, d.Races)
	assert.Equal(t, 3, d.Top10s)
	assert.Equal(t, 2.0, d.AvgFinish)
	assert.Equal(t, 3.0, d.AvgStart)
	assert.Equal(t, 1.0, d.AvgIncidents)
	assert.Equal(t, []int{0, 0, 10}, d.RaceDistances)
	assert.Empty(t, validate.Record("S1", d))
}

func TestCounterMonotonicity(t *testing.T) {
	rnd := rand.New(rand.NewSource(42)) //nolint:gosec // test data
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	drivers := model.Drivers{}
	for race := 1; race <= 40; race++ {
		perm := rnd.Perm(len(names))
		size := 3 + rnd.Intn(len(names)-3)
		rows := make([]basedata.Row, 0, size)
		for pos := 0; pos < size; pos++ {
			finish := pos
			if rnd.Intn(10) == 0 {
				finish = -1
			}
			row := basedata.Row{
				Name:         names[perm[pos]],
				Finish:       finish,
				Incidents:    float64(rnd.Intn(9)),
				Points:       float64(size - pos),
				LapsComplete: 20 - rnd.Intn(3),
				LapsLead:     rnd.Intn(3),
				BestLapTime:  float64(900000 + rnd.Intn(5000)),
			}
			if rnd.Intn(4) != 0 {
				row.Start = basedata.Pos(rnd.Intn(size))
			}
			rows = append(rows, row)
		}
		Apply("S1", drivers, parse(t, basedata.RacePayload(race, rows...)))
		for _, name := range drivers.Names() {
			d := drivers[name]
			assert.LessOrEqual(t, d.Wins, d.Podiums)
			assert.LessOrEqual(t, d.Podiums, d.Top10s)
			assert.LessOrEqual(t, d.Top10s, d.Races)
			assert.LessOrEqual(t, d.LapsLead, d.LapsComplete)
			assert.Len(t, d.RaceDistances, d.Races)
		}
	}
}
