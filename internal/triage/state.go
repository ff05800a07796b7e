// Package triage runs one image submission through the analysis pipeline.
package triage

import (
	"errors"
	"fmt"
)

// State is a pipeline stage. A run moves strictly forward and ends in
// Persisted or Failed.
type State string

const (
	StateReceived     State = "received"
	StatePreprocessed State = "preprocessed"
	StateAnalyzed     State = "analyzed"
	StateParsed       State = "parsed"
	StateClassified   State = "classified"
	StateReported     State = "reported"
	StatePersisted    State = "persisted"
	StateFailed       State = "failed"
)

// StageError reports the stage that could not be reached. Err carries the
// originating error kind.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("triage %s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Transition renders the outcome of a run for request logs, e.g.
// "analyzed->failed" or "received->persisted".
func Transition(err error) string {
	if err == nil {
		return string(StateReceived) + "->" + string(StatePersisted)
	}
	var se *StageError
	if errors.As(err, &se) {
		return string(se.State) + "->" + string(StateFailed)
	}
	return string(StateReceived) + "->" + string(StateFailed)
}
