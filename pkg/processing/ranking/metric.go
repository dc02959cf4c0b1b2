package ranking

import (
	"fmt"
	"strings"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

type Metric string

const (
	Points           Metric = "points"
	Races            Metric = "races"
	Wins             Metric = "wins"
	Podiums          Metric = "podiums"
	Top10s           Metric = "top10s"
	Poles            Metric = "poles"
	FastestLaps      Metric = "fastestLaps"
	LapsComplete     Metric = "lapsComplete"
	LapsLead         Metric = "lapsLead"
	PositionChange   Metric = "positionChange"
	AvgIncidents     Metric = "avgIncidents"
	AvgStart         Metric = "avgStart"
	AvgFinish        Metric = "avgFinish"
	WinPct           Metric = "winPct"
	PodiumPct        Metric = "podiumPct"
	PolePct          Metric = "polePct"
	Top10Pct         Metric = "top10Pct"
	LapCompletionPct Metric = "lapCompletionPct"
	LapLeadPct       Metric = "lapLeadPct"
)

type metricInfo struct {
	label         string
	lowerIsBetter bool
	percentage    bool
	value         func(d *model.DriverRecord) float64
	// number of samples behind an average, only used for lowerIsBetter metrics
	weight func(d *model.DriverRecord) int
}

func racesWeight(d *model.DriverRecord) int  { return d.RacesWeighted }
func finishWeight(d *model.DriverRecord) int { return d.FinishWeighted }

var metrics = map[Metric]metricInfo{
	Points: {label: "Points", value: func(d *model.DriverRecord) float64 { return d.Points }},
	Races:  {label: "Races", value: func(d *model.DriverRecord) float64 { return float64(d.Races) }},
	Wins:   {label: "Wins", value: func(d *model.DriverRecord) float64 { return float64(d.Wins) }},
	Podiums: {
		label: "Podiums",
		value: func(d *model.DriverRecord) float64 { return float64(d.Podiums) },
	},
	Top10s: {label: "Top 10s", value: func(d *model.DriverRecord) float64 { return float64(d.Top10s) }},
	Poles:  {label: "Poles", value: func(d *model.DriverRecord) float64 { return float64(d.Poles) }},
	FastestLaps: {
		label: "Fastest laps",
		value: func(d *model.DriverRecord) float64 { return float64(d.FastestLaps) },
	},
	LapsComplete: {
		label: "Laps complete",
		value: func(d *model.DriverRecord) float64 { return float64(d.LapsComplete) },
	},
	LapsLead: {
		label: "Laps lead",
		value: func(d *model.DriverRecord) float64 { return float64(d.LapsLead) },
	},
	PositionChange: {
		label: "Positions gained",
		value: func(d *model.DriverRecord) float64 { return d.PositionChange },
	},
	AvgIncidents: {
		label: "Avg incidents", lowerIsBetter: true, weight: racesWeight,
		value: func(d *model.DriverRecord) float64 { return d.AvgIncidents },
	},
	AvgStart: {
		label: "Avg start", lowerIsBetter: true, weight: racesWeight,
		value: func(d *model.DriverRecord) float64 { return d.AvgStart },
	},
	AvgFinish: {
		label: "Avg finish", lowerIsBetter: true, weight: finishWeight,
		value: func(d *model.DriverRecord) float64 { return d.AvgFinish },
	},
	WinPct:    {label: "Win %", percentage: true, value: (*model.DriverRecord).WinPct},
	PodiumPct: {label: "Podium %", percentage: true, value: (*model.DriverRecord).PodiumPct},
	PolePct:   {label: "Pole %", percentage: true, value: (*model.DriverRecord).PolePct},
	Top10Pct:  {label: "Top 10 %", percentage: true, value: (*model.DriverRecord).Top10Pct},
	LapCompletionPct: {
		label: "Lap completion %", percentage: true,
		value: (*model.DriverRecord).LapCompletionPct,
	},
	LapLeadPct: {
		label: "Lap lead %", percentage: true,
		value: (*model.DriverRecord).LapLeadPct,
	},
}

// Metrics returns all known metrics in display order.
func Metrics() []Metric {
	return []Metric{
		Points, Wins, Poles, Podiums, Top10s, AvgIncidents, AvgStart, AvgFinish,
		Races, FastestLaps, LapsComplete, LapsLead, PositionChange,
		WinPct, PodiumPct, PolePct, Top10Pct, LapCompletionPct, LapLeadPct,
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

// ParseMetric accepts the metric key in camelCase or snake_case.
func ParseMetric(s string) (Metric, error) {
	key := normalizeKey(s)
	for m := range metrics {
		if normalizeKey(string(m)) == key {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", model.ErrUnknownMetric, s)
}

func (m Metric) Label() string {
	return metrics[m].label
}

func (m Metric) LowerIsBetter() bool {
	return metrics[m].lowerIsBetter
}

func (m Metric) Percentage() bool {
	return metrics[m].percentage
}

// Value returns the raw metric value of d.
func (m Metric) Value(d *model.DriverRecord) float64 {
	if info, ok := metrics[m]; ok {
		return info.value(d)
	}
	return 0
}
