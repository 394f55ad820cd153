package resultsRepo

import (
	"context"

	"wayfarer/models"
)

// ResultsRepository stores the archived outcome of each search phase.
type ResultsRepository interface {
	// Upsert writes the record for its session and phase, replacing any
	// earlier write for the same pair.
	Upsert(ctx context.Context, record models.SearchRecord) error
	// ListBySession returns a session's records ordered by phase.
	ListBySession(ctx context.Context, sessionID string) ([]models.SearchRecord, error)
}
