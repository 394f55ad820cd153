package models

import "time"

// CritiqueFeedback is attached to a gather request after the critic spoke.
type CritiqueFeedback struct {
	Decision         CritiqueVerdict `json:"decision"`
	CurrentItinerary string          `json:"current_itinerary"`
	Feedback         string          `json:"critique_feedback"`
}

// GatherRequest is the input of the requirement-gathering call.
type GatherRequest struct {
	Message  string            `json:"message"`
	History  []ChatMessage     `json:"history"`
	Critique *CritiqueFeedback `json:"critique_message,omitempty"`
}

// GatherResult is what the gathering call answers with.
type GatherResult struct {
	Response string  `json:"response"`
	Summary  *string `json:"user_itinerary_request_summary"`
	Language *string `json:"user_language"`
}

// CompleteSummary returns the itinerary summary when the dialogue produced a
// usable one. Empty, literal "null" and near-empty summaries do not count.
func (r GatherResult) CompleteSummary() (string, bool) {
	if r.Summary == nil {
		return "", false
	}
	s := *r.Summary
	if s == "null" || len(s) <= 2 {
		return "", false
	}
	return s, true
}

// CritiqueRequest is the critic input.
type CritiqueRequest struct {
	Itinerary string          `json:"itinerary"`
	History   []CritiqueEntry `json:"context"`
}

// ReviewRequest is the reviewer input for one search attempt.
type ReviewRequest struct {
	UserRequest     string           `json:"user_request"`
	Language        string           `json:"user_language"`
	Params          QueryParams      `json:"params"`
	LastSeenPOIs    []POI            `json:"last_search_pois"`
	SelectedSoFar   []POI            `json:"pois_selected_so_far,omitempty"`
	PreviousReviews []ReviewDecision `json:"previous_reviews,omitempty"`
	LastError       string           `json:"last_error,omitempty"`
}

// SummaryRequest is the summarizer input.
type SummaryRequest struct {
	UserRequest string `json:"user_request"`
	Language    string `json:"user_language"`
	POIs        []POI  `json:"pois"`
}

// TitleRequest asks for a short localized status title.
type TitleRequest struct {
	Content  string `json:"content"`
	Language string `json:"user_language"`
}

// SearchRecord is the archived outcome of one search phase.
type SearchRecord struct {
	SessionID   string      `json:"session_id" bson:"sessionId"`
	Phase       int         `json:"phase" bson:"phase"`
	UserRequest string      `json:"user_request" bson:"userRequest"`
	Params      QueryParams `json:"params" bson:"params"`
	POIs        []POI       `json:"pois" bson:"pois"`
	Summary     string      `json:"summary" bson:"summary"`
	Attempts    int         `json:"attempts" bson:"attempts"`
	CreatedAt   time.Time   `json:"created_at" bson:"createdAt"`
}
