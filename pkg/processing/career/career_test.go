package career

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

func rec(name string, races int, inc, start, finish float64, wins int) *model.DriverRecord {
	d := model.NewDriverRecord(name)
	d.Races = races
	d.Wins = wins
	d.Podiums = wins
	d.Top10s = races
	d.AvgIncidents = inc
	d.AvgStart = start
	d.AvgFinish = finish
	d.RacesWeighted = races
	d.FinishWeighted = races
	d.Points = float64(races * 10)
	for i := 0; i < races; i++ {
		d.RaceDistances = append(d.RaceDistances, 20)
	}
	return d
}

func sampleSeasons() []*model.Season {
	return []*model.Season{
		{Name: "A", Drivers: model.Drivers{
			"X": rec("X", 3, 2.0, 4.0, 3.0, 1),
			"Y": rec("Y", 1, 0.0, 1.0, 1.0, 1),
		}},
		{Name: "B", Drivers: model.Drivers{
			"X": rec("X", 1, 6.0, 8.0, 7.0, 0),
		}},
		{Name: "C", Drivers: model.Drivers{
			"X": rec("X", 6, 1.333, 2.5, 2.167, 2),
			"Z": rec("Z", 2, 3.0, 3.0, 3.0, 0),
		}},
	}
}

func permutations(in []*model.Season) [][]*model.Season {
	if len(in) <= 1 {
		return [][]*model.Season{in}
	}
	ret := [][]*model.Season{}
	for i := range in {
		rest := make([]*model.Season, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			ret = append(ret, append([]*model.Season{in[i]}, p...))
		}
	}
	return ret
}

func TestAggregate(t *testing.T) {
	c := Aggregate(sampleSeasons())
	assert.Len(t, c, 3)
	x := c["X"]
	assert.Equal(t, 10, x.Races)
	assert.Equal(t, 3, x.Wins)
	assert.Equal(t, 100.0, x.Points)
	assert.Len(t, x.RaceDistances, 10)
	// (3*3 + 1*7 + 6*2.167) / 10
	assert.InDelta(t, 2.9002, x.AvgFinish, 1e-9)
	assert.InDelta(t, 30.0, x.WinPct(), 1e-9)
	assert.Nil(t, x.History)
	assert.Equal(t, 1, c["Y"].Races)
}

func TestAggregateOrderIndependent(t *testing.T) {
	base := Aggregate(sampleSeasons())
	for _, perm := range permutations(sampleSeasons()) {
		got := Aggregate(perm)
		for name, want := range base {
			g := got[name]
			assert.Equal(t, want.Races, g.Races)
			assert.InDelta(t, want.AvgFinish, g.AvgFinish, 1e-9, name)
			assert.InDelta(t, want.AvgStart, g.AvgStart, 1e-9, name)
			assert.InDelta(t, want.AvgIncidents, g.AvgIncidents, 1e-9, name)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]*model.Season{nil, {Name: "E", Drivers: model.Drivers{}}}))
}
