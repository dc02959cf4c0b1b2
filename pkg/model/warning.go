package model

import "fmt"

type WarningKind string

const (
	WarnEstimatedStart   WarningKind = "estimated-start"
	WarnCounterOrder     WarningKind = "counter-order"
	WarnLapsLead         WarningKind = "laps-lead"
	WarnRaceDistances    WarningKind = "race-distances"
	WarnWeights          WarningKind = "weights"
	WarnNegativeCounter  WarningKind = "negative-counter"
	WarnIncompleteLedger WarningKind = "incomplete-ledger"
)

// ValidationWarning flags unusual data. It never aborts an operation.
type ValidationWarning struct {
	Kind    WarningKind `json:"kind"`
	Season  string      `json:"season,omitempty"`
	Driver  string      `json:"driver"`
	Message string      `json:"message"`
}

func (w ValidationWarning) String() string {
	if w.Season != "" {
		return fmt.Sprintf("[%s] %s/%s: %s", w.Kind, w.Season, w.Driver, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Driver, w.Message)
}
