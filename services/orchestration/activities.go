package orchestration

import (
	"context"
	"fmt"
	"time"

	"wayfarer/models"
	"wayfarer/services/events"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// InvalidDecisionErrorType tags activity errors caused by an out-of-contract
// verdict. They stay retryable so the whole call is attempted again.
const InvalidDecisionErrorType = "InvalidDecision"

const defaultMaxResults = 10

// Reasoner is the natural-language decision service.
type Reasoner interface {
	Gather(ctx context.Context, req models.GatherRequest) (models.GatherResult, error)
	Critique(ctx context.Context, req models.CritiqueRequest) (models.CritiqueDecision, error)
	ProposeParams(ctx context.Context, request string) (models.QueryParams, error)
	Review(ctx context.Context, req models.ReviewRequest) (models.ReviewDecision, error)
	Summarize(ctx context.Context, req models.SummaryRequest) (string, error)
	GenerateTitle(ctx context.Context, req models.TitleRequest) (string, error)
}

// PlaceLookup fetches POIs for a query.
type PlaceLookup interface {
	Search(ctx context.Context, params models.QueryParams) ([]models.POI, error)
}

// AdvisoryLookup fetches travel advisory text.
type AdvisoryLookup interface {
	Lookup(ctx context.Context, query models.AdvisoryQuery) (string, error)
}

// Archive stores the outcome of search phases.
type Archive interface {
	Upsert(ctx context.Context, record models.SearchRecord) error
}

// Activities are the external calls of the session workflow. Every method
// is a pure function of its input plus the injected collaborator, so a
// retried call is safe.
type Activities struct {
	Reasoner  Reasoner
	Places    PlaceLookup
	Advisory  AdvisoryLookup
	Publisher events.Publisher
	Archive   Archive
}

// acts is only used to name activity methods from workflow code.
var acts *Activities

func (a *Activities) Gather(ctx context.Context, req models.GatherRequest) (models.GatherResult, error) {
	return a.Reasoner.Gather(ctx, req)
}

func (a *Activities) Critique(ctx context.Context, req models.CritiqueRequest) (models.CritiqueDecision, error) {
	decision, err := a.Reasoner.Critique(ctx, req)
	if err != nil {
		return models.CritiqueDecision{}, err
	}
	verdict, err := models.ParseCritiqueVerdict(string(decision.Decision))
	if err != nil {
		return models.CritiqueDecision{}, invalidDecision("critique", err)
	}
	decision.Decision = verdict
	if err := decision.Validate(); err != nil {
		return models.CritiqueDecision{}, invalidDecision("critique", err)
	}
	return decision, nil
}

func (a *Activities) AdvisoryLookup(ctx context.Context, query models.AdvisoryQuery) (string, error) {
	activity.GetLogger(ctx).Info("Advisory lookup", "query", query.Query, "countries", query.Countries)
	return a.Advisory.Lookup(ctx, query)
}

func (a *Activities) ProposeParams(ctx context.Context, request string) (models.QueryParams, error) {
	params, err := a.Reasoner.ProposeParams(ctx, request)
	if err != nil {
		return models.QueryParams{}, err
	}
	if params.MaxResults <= 0 {
		params.MaxResults = defaultMaxResults
	}
	return params, nil
}

func (a *Activities) PlaceLookup(ctx context.Context, params models.QueryParams) ([]models.POI, error) {
	return a.Places.Search(ctx, params)
}

func (a *Activities) Review(ctx context.Context, req models.ReviewRequest) (models.ReviewDecision, error) {
	decision, err := a.Reasoner.Review(ctx, req)
	if err != nil {
		return models.ReviewDecision{}, err
	}
	verdict, err := models.ParseReviewVerdict(string(decision.Decision))
	if err != nil {
		return models.ReviewDecision{}, invalidDecision("review", err)
	}
	decision.Decision = verdict
	return decision, nil
}

func (a *Activities) Summarize(ctx context.Context, req models.SummaryRequest) (string, error) {
	return a.Reasoner.Summarize(ctx, req)
}

func (a *Activities) GenerateTitle(ctx context.Context, req models.TitleRequest) (string, error) {
	return a.Reasoner.GenerateTitle(ctx, req)
}

func (a *Activities) PublishEvent(ctx context.Context, event models.Event) error {
	return a.Publisher.Publish(ctx, event)
}

// ArchiveSearch upserts by session and phase, so a retry overwrites rather
// than duplicates.
func (a *Activities) ArchiveSearch(ctx context.Context, record models.SearchRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return a.Archive.Upsert(ctx, record)
}

func invalidDecision(step string, cause error) error {
	return temporal.NewApplicationErrorWithCause(
		fmt.Sprintf("%s returned an invalid decision", step),
		InvalidDecisionErrorType,
		cause,
	)
}

// NopArchive discards records. Used when no database is configured.
type NopArchive struct{}

func (NopArchive) Upsert(context.Context, models.SearchRecord) error { return nil }
