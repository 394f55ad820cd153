package orchestration

import "wayfarer/models"

// HistoryPolicy bounds the session context between search phases. Zero
// limits mean unbounded. Only the newest entries are kept.
type HistoryPolicy struct {
	MaxTranscript int `json:"max_transcript"`
	MaxCritique   int `json:"max_critique"`
}

// Apply trims c in place. It runs at the orchestration boundary only, never
// inside a loop, so loops always see the full history of the current
// negotiation.
func (p HistoryPolicy) Apply(c *models.SessionContext) {
	c.Transcript = keepNewest(c.Transcript, p.MaxTranscript)
	c.CritiqueHistory = keepNewest(c.CritiqueHistory, p.MaxCritique)
}

func keepNewest[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	out := make([]T, limit)
	copy(out, items[len(items)-limit:])
	return out
}
