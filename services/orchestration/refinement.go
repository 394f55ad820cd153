package orchestration

import (
	"fmt"

	"wayfarer/models"

	"go.temporal.io/sdk/workflow"
)

const searchingStatus = "Searching"

// searchResult is what one refinement loop produced.
type searchResult struct {
	params   models.QueryParams
	selected []models.POI
	attempts int
}

// searchPOIs runs the refinement loop for request, then summarizes and
// publishes the selection. The poi_map event is the last event of the phase
// and the only final one.
func (m *machine) searchPOIs(ctx workflow.Context, request string) error {
	m.setState(ctx, StateSearchRefinement)
	result, err := m.refine(ctx, request)
	if err != nil {
		return err
	}

	m.setState(ctx, StateSummarizing)
	var summary string
	err = workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.Summarize, models.SummaryRequest{
		UserRequest: request,
		Language:    m.session.LanguageOrEmpty(),
		POIs:        result.selected,
	}).Get(ctx, &summary)
	if err != nil {
		return err
	}

	if err := m.publishMessage(ctx, summary, false); err != nil {
		return err
	}
	m.session.AppendChat(models.SourceAssistant, summary)

	if err := m.publish(ctx, models.Event{
		Type:    models.EventPOIMap,
		IsFinal: true,
		POIData: result.selected,
	}); err != nil {
		return err
	}

	if m.settings.ArchiveResults {
		record := models.SearchRecord{
			SessionID:   m.session.SessionID,
			Phase:       m.phases + 1,
			UserRequest: request,
			Params:      result.params,
			POIs:        result.selected,
			Summary:     summary,
			Attempts:    result.attempts,
		}
		if err := workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.ArchiveSearch, record).Get(ctx, nil); err != nil {
			if isCancellation(ctx, err) {
				return err
			}
			workflow.GetLogger(ctx).Warn("Archiving search result failed", "session_id", m.session.SessionID, "error", err)
		}
	}
	return nil
}

// refine proposes params, then searches and reviews until the reviewer
// accepts or MaxAttempts is reached.
func (m *machine) refine(ctx workflow.Context, request string) (searchResult, error) {
	logger := workflow.GetLogger(ctx)

	var params models.QueryParams
	if err := workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.ProposeParams, request).Get(ctx, &params); err != nil {
		return searchResult{}, err
	}
	logger.Info("Initial search params", "session_id", m.session.SessionID, "params", params)

	var (
		lastSeen  []models.POI
		selected  []models.POI
		reviews   []models.ReviewDecision
		lastError string
		attempt   int
	)
	for {
		attempt++
		if err := m.publish(ctx, models.Event{Type: models.EventUpdate, Content: searchingStatus}); err != nil {
			return searchResult{}, err
		}

		var batch []models.POI
		if err := workflow.ExecuteActivity(m.settings.lookupCtx(ctx), acts.PlaceLookup, params).Get(ctx, &batch); err != nil {
			if isCancellation(ctx, err) {
				return searchResult{}, err
			}
			lastError = fmt.Sprintf("place lookup failed: %v", err)
			batch = nil
		}
		lastSeen = models.MergePOIs(lastSeen, batch)
		selected = models.RefreshPOIs(selected, batch)
		logger.Info("Search attempt", "session_id", m.session.SessionID, "attempt", attempt, "fetched", len(batch), "seen", len(lastSeen))

		var decision models.ReviewDecision
		err := workflow.ExecuteActivity(m.settings.reviewCtx(ctx), acts.Review, models.ReviewRequest{
			UserRequest:     request,
			Language:        m.session.LanguageOrEmpty(),
			Params:          params,
			LastSeenPOIs:    lastSeen,
			SelectedSoFar:   selected,
			PreviousReviews: reviews,
			LastError:       lastError,
		}).Get(ctx, &decision)
		if err != nil {
			return searchResult{}, err
		}

		if decision.Decision == models.ReviewAccept || attempt >= m.settings.MaxAttempts {
			selected = models.MergePOIs(selected, decision.SelectedPOIs)
			return searchResult{params: params, selected: selected, attempts: attempt}, nil
		}
		if decision.Decision != models.ReviewRefine {
			return searchResult{}, fmt.Errorf("review verdict %q: %w", decision.Decision, models.ErrUnrecognizedDecision)
		}

		var title string
		err = workflow.ExecuteActivity(m.settings.callCtx(ctx), acts.GenerateTitle, models.TitleRequest{
			Content:  decision.Reason,
			Language: m.session.LanguageOrEmpty(),
		}).Get(ctx, &title)
		if err != nil {
			return searchResult{}, err
		}
		if err := m.publish(ctx, models.Event{Type: models.EventUpdate, Content: decision.Reason, Title: title}); err != nil {
			return searchResult{}, err
		}

		if decision.NewParams != nil {
			params = *decision.NewParams
		}
		if len(decision.SelectedPOIs) > 0 {
			lastSeen = models.MergePOIs(lastSeen, decision.SelectedPOIs)
			selected = models.MergePOIs(selected, decision.SelectedPOIs)
		}
		reviews = append(reviews, decision)
		logger.Info("Refining search", "session_id", m.session.SessionID, "attempt", attempt, "params", params)
	}
}
