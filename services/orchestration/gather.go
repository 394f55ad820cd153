package orchestration

import (
	"encoding/json"
	"fmt"

	"wayfarer/models"

	"go.temporal.io/sdk/workflow"
)

// gatherRequirements runs dialogue turns until an itinerary summary passes
// critique, and returns the request to search for.
func (m *machine) gatherRequirements(ctx workflow.Context) (string, error) {
	for {
		m.setState(ctx, StateAwaitingUserInput)
		if err := workflow.Await(ctx, func() bool { return m.mailbox.Len() > 0 }); err != nil {
			return "", err
		}
		reply, _ := m.mailbox.Take()
		m.turn = &reply

		m.setState(ctx, StateRequirementGathering)
		if !reply.Recorded {
			m.session.AppendChat(models.SourceUser, reply.Text)
			m.turn.Recorded = true
		}

		result, err := m.gather(ctx, models.GatherRequest{
			Message: reply.Text,
			History: m.session.Transcript,
		})
		if err != nil {
			return "", err
		}
		m.session.SetLanguage(result.Language)
		m.session.AppendChat(models.SourceAssistant, result.Response)

		summary, complete := result.CompleteSummary()
		if err := m.publishMessage(ctx, result.Response, !complete); err != nil {
			return "", err
		}
		if !complete {
			continue
		}
		m.session.AppendChat(models.SourceItinerary, summary)

		m.setState(ctx, StatePendingCritique)
		decision, err := m.critiqueItinerary(ctx, summary)
		if err != nil {
			return "", err
		}

		switch decision.Decision {
		case models.CritiqueAccept:
			m.setState(ctx, StateAccepted)
			return summary, nil
		case models.CritiqueWarning:
			m.setState(ctx, StateWarningHandling)
			followUp, err := m.answerCritique(ctx, summary, decision)
			if err != nil {
				return "", err
			}
			if revised, ok := followUp.CompleteSummary(); ok {
				return revised, nil
			}
		case models.CritiqueRefine:
			m.setState(ctx, StateRefineHandling)
			if _, err := m.answerCritique(ctx, summary, decision); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("critique loop ended on %q: %w", decision.Decision, models.ErrUnrecognizedDecision)
		}
	}
}

// answerCritique records the critique in the transcript and asks the gather
// function to explain it to the user. The response is final unless it already
// carries a summary the search can start from.
func (m *machine) answerCritique(ctx workflow.Context, itinerary string, decision models.CritiqueDecision) (models.GatherResult, error) {
	raw, err := json.Marshal(decision)
	if err != nil {
		return models.GatherResult{}, err
	}
	m.session.AppendChat(models.SourceCritique, string(raw))

	result, err := m.gather(ctx, models.GatherRequest{
		History: m.session.Transcript,
		Critique: &models.CritiqueFeedback{
			Decision:         decision.Decision,
			CurrentItinerary: itinerary,
			Feedback:         decision.Feedback,
		},
	})
	if err != nil {
		return models.GatherResult{}, err
	}
	m.session.SetLanguage(result.Language)
	m.session.AppendChat(models.SourceAssistant, result.Response)

	_, complete := result.CompleteSummary()
	final := !complete || decision.Decision == models.CritiqueRefine
	if err := m.publishMessage(ctx, result.Response, final); err != nil {
		return models.GatherResult{}, err
	}
	return result, nil
}

func (m *machine) gather(ctx workflow.Context, req models.GatherRequest) (models.GatherResult, error) {
	var result models.GatherResult
	err := workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.Gather, req).Get(ctx, &result)
	return result, err
}

func (m *machine) publishMessage(ctx workflow.Context, content string, final bool) error {
	return m.publish(ctx, models.Event{Type: models.EventMessage, Content: content, IsFinal: final})
}

func (m *machine) publish(ctx workflow.Context, event models.Event) error {
	event.SessionID = m.session.SessionID
	return workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.PublishEvent, event).Get(ctx, nil)
}
