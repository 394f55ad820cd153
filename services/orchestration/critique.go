package orchestration

import (
	"errors"
	"fmt"

	"wayfarer/models"

	"go.temporal.io/sdk/workflow"
)

// ErrCritiqueRoundsExhausted is returned when the critic keeps asking for
// tools without reaching a verdict.
var ErrCritiqueRoundsExhausted = errors.New("critique rounds exhausted")

// critiqueItinerary loops the critic until it reaches accept, warning or
// refine. Each critic call and each advisory lookup appends to the critique
// history. Countries that already have advisory data are never looked up
// again.
func (m *machine) critiqueItinerary(ctx workflow.Context, itinerary string) (models.CritiqueDecision, error) {
	logger := workflow.GetLogger(ctx)

	for round := 1; round <= m.settings.MaxCritiqueRounds; round++ {
		var decision models.CritiqueDecision
		err := workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.Critique, models.CritiqueRequest{
			Itinerary: itinerary,
			History:   m.session.CritiqueHistory,
		}).Get(ctx, &decision)
		if err != nil {
			return models.CritiqueDecision{}, err
		}

		entry := models.CritiqueEntry{
			Itinerary: itinerary,
			Decision:  decision.Decision,
			Feedback:  decision.Feedback,
		}
		if decision.ToolParams != nil {
			entry.Countries = decision.ToolParams.Countries
		}
		m.session.AppendCritique(entry)

		switch decision.Decision {
		case models.CritiqueAccept, models.CritiqueWarning, models.CritiqueRefine:
			return decision, nil
		case models.CritiqueUseTool:
			if decision.ToolParams == nil {
				return models.CritiqueDecision{}, fmt.Errorf("use_tool without tool params: %w", models.ErrIncompleteDecision)
			}
			query, ok := m.pendingAdvisory(*decision.ToolParams)
			if !ok {
				logger.Info("Advisory already in history, skipping lookup",
					"session_id", m.session.SessionID,
					"countries", decision.ToolParams.Countries,
				)
				continue
			}
			var advisory string
			if err := workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.AdvisoryLookup, query).Get(ctx, &advisory); err != nil {
				return models.CritiqueDecision{}, err
			}
			m.session.AppendCritique(models.CritiqueEntry{
				Itinerary: itinerary,
				Advisory:  advisory,
				Countries: query.Countries,
			})
		default:
			return models.CritiqueDecision{}, fmt.Errorf("critique verdict %q: %w", decision.Decision, models.ErrUnrecognizedDecision)
		}
	}
	return models.CritiqueDecision{}, fmt.Errorf("%d rounds for one itinerary: %w", m.settings.MaxCritiqueRounds, ErrCritiqueRoundsExhausted)
}

// pendingAdvisory narrows a tool request to the countries that have no
// advisory in history yet. It reports false when nothing is left to fetch.
// A request without a country list cannot be narrowed and is passed through.
func (m *machine) pendingAdvisory(query models.AdvisoryQuery) (models.AdvisoryQuery, bool) {
	if len(query.Countries) == 0 {
		return query, true
	}
	known := m.session.AdvisedCountries()
	var missing []string
	seen := make(map[string]struct{})
	for _, country := range query.Countries {
		key := models.NormalizeCountry(country)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, country)
	}
	if len(missing) == 0 {
		return query, false
	}
	query.Countries = missing
	return query, true
}
