package models

import "strings"

// Transcript sources.
const (
	SourceUser      = "user"
	SourceAssistant = "Lorenzo"
	SourceItinerary = "Initial itinerary"
	SourceCritique  = "critique"
)

// ChatMessage is one transcript line.
type ChatMessage struct {
	Source  string `json:"source" bson:"source"`
	Message string `json:"message" bson:"message"`
}

// CritiqueEntry is one line of the critique audit trail. Critic calls fill
// Decision and Feedback; advisory lookups leave Decision empty and fill
// Advisory and Countries.
type CritiqueEntry struct {
	Itinerary string          `json:"itinerary" bson:"itinerary"`
	Decision  CritiqueVerdict `json:"decision" bson:"decision"`
	Feedback  string          `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Advisory  string          `json:"travel_advise,omitempty" bson:"travelAdvise,omitempty"`
	Countries []string        `json:"countries,omitempty" bson:"countries,omitempty"`
}

// IsAdvisory reports whether the entry was written by an advisory lookup.
func (e CritiqueEntry) IsAdvisory() bool {
	return e.Decision == ""
}

// SessionContext is the state owned by one session workflow.
type SessionContext struct {
	SessionID       string          `json:"session_id"`
	Language        *string         `json:"language,omitempty"`
	Transcript      []ChatMessage   `json:"transcript,omitempty"`
	CritiqueHistory []CritiqueEntry `json:"critique_history,omitempty"`
}

// AppendChat adds a transcript line.
func (c *SessionContext) AppendChat(source, message string) {
	c.Transcript = append(c.Transcript, ChatMessage{Source: source, Message: message})
}

// AppendCritique adds a critique history line.
func (c *SessionContext) AppendCritique(entry CritiqueEntry) {
	c.CritiqueHistory = append(c.CritiqueHistory, entry)
}

// SetLanguage records the user language. Empty values are ignored so a known
// language is never unset.
func (c *SessionContext) SetLanguage(lang *string) {
	if lang == nil || strings.TrimSpace(*lang) == "" {
		return
	}
	l := strings.TrimSpace(*lang)
	c.Language = &l
}

// LanguageOrEmpty returns the language or "".
func (c *SessionContext) LanguageOrEmpty() string {
	if c.Language == nil {
		return ""
	}
	return *c.Language
}

// AdvisedCountries returns the lower-cased set of countries that already have
// advisory data in the critique history.
func (c *SessionContext) AdvisedCountries() map[string]struct{} {
	seen := make(map[string]struct{})
	for _, e := range c.CritiqueHistory {
		if !e.IsAdvisory() {
			continue
		}
		for _, country := range e.Countries {
			seen[NormalizeCountry(country)] = struct{}{}
		}
	}
	return seen
}

// NormalizeCountry is the comparison key for country names.
func NormalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}
