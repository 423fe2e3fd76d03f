package domain

import "time"

// TranscodeRequest is what the orchestrator hands to the transcoder for one
// invocation. Duration is the source duration when known and is only used
// to turn the transcoder's time position into a percentage.
type TranscodeRequest struct {
	ItemID      string
	Input       string
	Destination string
	Args        []string
	Duration    time.Duration
}

type JobOutcome string

const (
	JobOutcomeDone          JobOutcome = "done"
	JobOutcomeError         JobOutcome = "error"
	JobOutcomeCancelled     JobOutcome = "cancelled"
	JobOutcomeSkipped       JobOutcome = "skipped"
	JobOutcomeAlreadyTarget JobOutcome = "already_target"
)
