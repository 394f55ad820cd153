package orchestration

import (
	"errors"

	"wayfarer/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// WorkflowName is the registered name of the session workflow.
	WorkflowName = "SessionWorkflow"
	// UserReplySignal delivers submitUserReply(text).
	UserReplySignal = "user_reply"
	// StateQuery returns a StateSnapshot.
	StateQuery = "state"
)

// SessionInput starts or continues a session workflow. Context, Pending and
// PhasesCompleted are only set when the workflow continues as new.
type SessionInput struct {
	SessionID       string                 `json:"session_id"`
	Settings        Settings               `json:"settings"`
	Context         *models.SessionContext `json:"context,omitempty"`
	Pending         []Reply                `json:"pending,omitempty"`
	PhasesCompleted int                    `json:"phases_completed"`
}

type machine struct {
	settings Settings
	session  models.SessionContext
	mailbox  *Mailbox
	state    SessionState
	phases   int
	// turn is the reply that started the phase in flight.
	turn *Reply
}

func newMachine(input SessionInput) *machine {
	settings := input.Settings.withDefaults()
	m := &machine{
		settings: settings,
		mailbox:  NewMailbox(settings.MailboxCapacity, settings.MailboxPolicy, input.Pending),
		state:    StateAwaitingUserInput,
		phases:   input.PhasesCompleted,
	}
	if input.Context != nil {
		m.session = *input.Context
	}
	m.session.SessionID = input.SessionID
	return m
}

// SessionWorkflow runs one session until it is cancelled or terminated. It
// only returns on cancellation or to continue as new.
func SessionWorkflow(ctx workflow.Context, input SessionInput) error {
	m := newMachine(input)

	if err := workflow.SetQueryHandler(ctx, StateQuery, func() (StateSnapshot, error) {
		return m.snapshot(), nil
	}); err != nil {
		return err
	}

	replies := workflow.GetSignalChannel(ctx, UserReplySignal)
	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			var text string
			if more := replies.Receive(ctx, &text); !more || ctx.Err() != nil {
				return
			}
			m.receive(ctx, text)
		}
	})

	for {
		request, err := m.gatherRequirements(ctx)
		if err != nil {
			return m.failPhase(ctx, replies, err)
		}
		if err := m.searchPOIs(ctx, request); err != nil {
			return m.failPhase(ctx, replies, err)
		}
		m.completePhase()
		if m.settings.ContinueAsNewAfter > 0 && m.phases%m.settings.ContinueAsNewAfter == 0 {
			return m.continueAsNew(ctx, replies)
		}
	}
}

func (m *machine) receive(ctx workflow.Context, text string) {
	if dropped := m.mailbox.Push(Reply{Text: text}); dropped {
		workflow.GetLogger(ctx).Warn("Mailbox full, reply discarded",
			"session_id", m.session.SessionID,
			"policy", string(m.settings.MailboxPolicy),
		)
	}
}

func (m *machine) setState(ctx workflow.Context, s SessionState) {
	if m.state == s {
		return
	}
	workflow.GetLogger(ctx).Debug("Session state", "session_id", m.session.SessionID, "from", string(m.state), "to", string(s))
	m.state = s
}

func (m *machine) snapshot() StateSnapshot {
	return StateSnapshot{
		SessionID:       m.session.SessionID,
		State:           m.state,
		Language:        m.session.LanguageOrEmpty(),
		TranscriptLen:   len(m.session.Transcript),
		CritiqueLen:     len(m.session.CritiqueHistory),
		PendingReplies:  m.mailbox.Len(),
		DroppedReplies:  m.mailbox.Dropped(),
		PhasesCompleted: m.phases,
	}
}

// completePhase runs after a search phase published its results.
func (m *machine) completePhase() {
	m.mailbox.Clear()
	m.turn = nil
	m.phases++
	m.settings.History.Apply(&m.session)
}

// failPhase handles an error that escaped a phase after activity retries.
// Cancellation ends the run. Anything else re-queues the reply that started
// the turn and continues as new with the session state intact, which is a
// fresh attempt of the turn. A reply that keeps failing is dropped.
func (m *machine) failPhase(ctx workflow.Context, replies workflow.ReceiveChannel, err error) error {
	if isCancellation(ctx, err) {
		return err
	}
	logger := workflow.GetLogger(ctx)
	logger.Error("Session phase failed", "session_id", m.session.SessionID, "state", string(m.state), "error", err)

	if m.turn != nil {
		retry := *m.turn
		retry.Attempt++
		if retry.Attempt > m.settings.MaxPhaseRetries {
			logger.Error("Dropping reply after repeated failures", "session_id", m.session.SessionID, "attempts", retry.Attempt)
		} else if dropped := m.mailbox.Requeue(retry); dropped {
			logger.Warn("Retry superseded by newer replies", "session_id", m.session.SessionID)
		}
		m.turn = nil
	}
	return m.continueAsNew(ctx, replies)
}

func (m *machine) continueAsNew(ctx workflow.Context, replies workflow.ReceiveChannel) error {
	for {
		var text string
		if !replies.ReceiveAsync(&text) {
			break
		}
		m.receive(ctx, text)
	}
	session := m.session
	return workflow.NewContinueAsNewError(ctx, SessionWorkflow, SessionInput{
		SessionID:       m.session.SessionID,
		Settings:        m.settings,
		Context:         &session,
		Pending:         m.mailbox.Pending(),
		PhasesCompleted: m.phases,
	})
}

func isCancellation(ctx workflow.Context, err error) bool {
	if temporal.IsCanceledError(err) || errors.Is(ctx.Err(), workflow.ErrCanceled) {
		return true
	}
	return false
}
