//nolint:funlen // ok for tests
package reversal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/payload"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/season"
	"github.com/mpapenbr/iracelog-league-stats/testsupport/basedata"
)

func parse(t *testing.T, raw []byte) *model.RacePayload {
	t.Helper()
	p, err := payload.Parse(raw)
	require.NoError(t, err)
	return p
}

func legacyDriver(t *testing.T) *model.DriverRecord {
	t.Helper()
	var d model.DriverRecord
	require.NoError(t, d.UnmarshalJSON([]byte(
		`{"races":2,"wins":0,"podiums":1,"top10s":2,"points":30,
		"avg_incidents":1.5,"avg_start":4,"avg_finish":2.5,"_rp":2}`)))
	d.Name = "Old"
	return &d
}

func TestRevertRestoresPreviousState(t *testing.T) {
	drivers := model.Drivers{}
	first := parse(t, basedata.AliceAndBob())
	second := parse(t, basedata.RacePayload(2,
		basedata.Row{
			Name: "Alice", Finish: 2, Start: basedata.Pos(4), Incidents: 6,
			Points: 10, LapsComplete: 10, BestLapTime: 910000,
		},
		basedata.Row{Name: "Carl", Finish: 0, Start: basedata.Pos(0), LapsComplete: 10},
	))
	season.Apply("S1", drivers, first)
	snapshot := drivers.Clone()
	season.Apply("S1", drivers, second)
	assert.Equal(t, 2, drivers["Alice"].Races)

	res := Revert(drivers, second)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"Alice"}, res.DriversChanged)
	assert.Equal(t, []string{"Carl"}, res.DriversRemoved)
	assert.Empty(t, res.Approximated)
	if diff := cmp.Diff(snapshot, drivers); diff != "" {
		t.Errorf("Revert() mismatch (-want +got):\n%s", diff)
	}
}

func TestRevertRemovesDriversAtZero(t *testing.T) {
	drivers := model.Drivers{}
	p := parse(t, basedata.AliceAndBob())
	season.Apply("S1", drivers, p)
	assert.True(t, References(drivers, p.Digest))

	res := Revert(drivers, p)
	assert.True(t, res.Changed)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, res.DriversRemoved)
	assert.Empty(t, drivers)
	assert.False(t, References(drivers, p.Digest))
}

func TestRevertMiddlePayloadExact(t *testing.T) {
	drivers := model.Drivers{}
	payloads := []*model.RacePayload{
		parse(t, basedata.FinishOnly(1, "X", 2)),
		parse(t, basedata.FinishOnly(2, "X", 0)),
		parse(t, basedata.FinishOnly(3, "X", 4)),
	}
	for _, p := range payloads {
		season.Apply("S1", drivers, p)
	}
	assert.Equal(t, 3.0, drivers["X"].AvgFinish)

	Revert(drivers, payloads[1])
	x := drivers["X"]
	assert.Equal(t, 2, x.Races)
	assert.Equal(t, 0, x.Wins)
	assert.Equal(t, 4.0, x.AvgFinish)
	assert.Equal(t, 4.0, x.AvgStart)
	assert.Equal(t, 2, x.FinishWeighted)
	assert.Equal(t, []int{10, 10}, x.RaceDistances)
	assert.Len(t, x.History, 2)
}

func TestRevertUnknownPayloadIsNoop(t *testing.T) {
	drivers := model.Drivers{}
	season.Apply("S1", drivers, parse(t, basedata.FinishOnly(1, "X", 2)))
	snapshot := drivers.Clone()

	res := Revert(drivers, parse(t, basedata.FinishOnly(99, "X", 0)))
	assert.False(t, res.Changed)
	assert.Equal(t, snapshot, drivers)
}

func TestRevertLedgerEntryOnMigratedRecord(t *testing.T) {
	drivers := model.Drivers{"Old": legacyDriver(t)}
	p := parse(t, basedata.FinishOnly(1, "Old", 0))
	season.Apply("S1", drivers, p)
	assert.Equal(t, 3, drivers["Old"].Races)

	res := Revert(drivers, p)
	assert.Empty(t, res.Approximated)
	d := drivers["Old"]
	assert.Equal(t, 2, d.Races)
	assert.Equal(t, 0, d.Wins)
	assert.Equal(t, 1, d.Podiums)
	assert.Equal(t, 2.5, d.AvgFinish)
	assert.Equal(t, 4.0, d.AvgStart)
	assert.Equal(t, 1.5, d.AvgIncidents)
	assert.Equal(t, 30.0, d.Points)
	assert.Len(t, d.RaceDistances, 2)
}

func TestRevertWithoutLedgerApproximates(t *testing.T) {
	drivers := model.Drivers{"Old": legacyDriver(t)}
	p := parse(t, basedata.FinishOnly(5, "Old", 2))

	res := Revert(drivers, p)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"Old"}, res.Approximated)
	d := drivers["Old"]
	assert.Equal(t, 1, d.Races)
	assert.Equal(t, 0, d.Podiums)
	assert.Equal(t, 1, d.Top10s)
	assert.Equal(t, 2.0, d.AvgFinish)
	assert.Equal(t, 5.0, d.AvgStart)
	assert.Equal(t, 1, d.RacesWeighted)
	assert.Equal(t, 1, d.FinishWeighted)
	assert.Len(t, d.RaceDistances, 1)
}
