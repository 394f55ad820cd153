package orchestration

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	defaultMaxAttempts       = 20
	defaultMaxCritiqueRounds = 8
	defaultMaxPhaseRetries   = 3

	callTimeout   = 2 * time.Minute
	reviewTimeout = 3 * time.Minute
)

// Settings tune one session workflow. They travel with the workflow input so
// a replay always sees the values the run started with.
type Settings struct {
	MaxAttempts        int            `json:"max_attempts"`
	MaxCritiqueRounds  int            `json:"max_critique_rounds"`
	MailboxCapacity    int            `json:"mailbox_capacity"`
	MailboxPolicy      OverflowPolicy `json:"mailbox_policy"`
	History            HistoryPolicy  `json:"history"`
	ContinueAsNewAfter int            `json:"continue_as_new_after"`
	MaxPhaseRetries    int            `json:"max_phase_retries"`
	ActivityAttempts   int32          `json:"activity_attempts"`
	LookupAttempts     int32          `json:"lookup_attempts"`
	ArchiveResults     bool           `json:"archive_results"`
}

func (s Settings) withDefaults() Settings {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultMaxAttempts
	}
	if s.MaxCritiqueRounds <= 0 {
		s.MaxCritiqueRounds = defaultMaxCritiqueRounds
	}
	if s.MailboxCapacity <= 0 {
		s.MailboxCapacity = 1
	}
	if s.MailboxPolicy == "" {
		s.MailboxPolicy = DropOldest
	}
	if s.MaxPhaseRetries <= 0 {
		s.MaxPhaseRetries = defaultMaxPhaseRetries
	}
	if s.ActivityAttempts <= 0 {
		s.ActivityAttempts = 5
	}
	if s.LookupAttempts <= 0 {
		s.LookupAttempts = 3
	}
	return s
}

func activityOptions(timeout time.Duration, attempts int32) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    attempts,
		},
	}
}

func (s Settings) callCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(callTimeout, s.ActivityAttempts))
}

func (s Settings) reviewCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(reviewTimeout, s.ActivityAttempts))
}

// lookupCtx gives place lookups fewer attempts: a failed lookup is reported
// to the reviewer instead of stalling the loop.
func (s Settings) lookupCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(callTimeout, s.LookupAttempts))
}
