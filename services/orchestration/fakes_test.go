package orchestration

import (
	"context"
	"errors"
	"sync"

	"wayfarer/models"
)

var errUnscripted = errors.New("no scripted response left")

// scriptedReasoner hands out canned responses in order. Activities run on their own
// goroutines in the test environment, so everything is locked.
type scriptedReasoner struct {
	mu sync.Mutex

	gathers   []models.GatherResult
	critiques []models.CritiqueDecision
	params    models.QueryParams
	reviews   []models.ReviewDecision
	summary   string

	gatherReqs   []models.GatherRequest
	critiqueReqs []models.CritiqueRequest
	reviewReqs   []models.ReviewRequest
	titleReqs    []models.TitleRequest
}

func (s *scriptedReasoner) Gather(_ context.Context, req models.GatherRequest) (models.GatherResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gatherReqs = append(s.gatherReqs, req)
	if len(s.gathers) == 0 {
		return models.GatherResult{}, errUnscripted
	}
	next := s.gathers[0]
	s.gathers = s.gathers[1:]
	return next, nil
}

func (s *scriptedReasoner) Critique(_ context.Context, req models.CritiqueRequest) (models.CritiqueDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.critiqueReqs = append(s.critiqueReqs, req)
	if len(s.critiques) == 0 {
		return models.CritiqueDecision{}, errUnscripted
	}
	next := s.critiques[0]
	s.critiques = s.critiques[1:]
	return next, nil
}

func (s *scriptedReasoner) ProposeParams(context.Context, string) (models.QueryParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params, nil
}

func (s *scriptedReasoner) Review(_ context.Context, req models.ReviewRequest) (models.ReviewDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviewReqs = append(s.reviewReqs, req)
	if len(s.reviews) == 0 {
		return models.ReviewDecision{}, errUnscripted
	}
	next := s.reviews[0]
	if len(s.reviews) > 1 {
		s.reviews = s.reviews[1:]
	}
	return next, nil
}

func (s *scriptedReasoner) Summarize(context.Context, models.SummaryRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

func (s *scriptedReasoner) GenerateTitle(_ context.Context, req models.TitleRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titleReqs = append(s.titleReqs, req)
	return "Refining", nil
}

func (s *scriptedReasoner) gatherCalls() []models.GatherRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GatherRequest(nil), s.gatherReqs...)
}

func (s *scriptedReasoner) critiqueCalls() []models.CritiqueRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CritiqueRequest(nil), s.critiqueReqs...)
}

func (s *scriptedReasoner) reviewCalls() []models.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReviewRequest(nil), s.reviewReqs...)
}

type fakePlaces struct {
	mu      sync.Mutex
	batches [][]models.POI
	err     error
	calls   int
}

func (f *fakePlaces) Search(context.Context, models.QueryParams) ([]models.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	if len(f.batches) > 1 {
		f.batches = f.batches[1:]
	}
	return next, nil
}

type fakeAdvisory struct {
	mu      sync.Mutex
	text    string
	queries []models.AdvisoryQuery
}

func (f *fakeAdvisory) Lookup(_ context.Context, q models.AdvisoryQuery) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.text, nil
}

func (f *fakeAdvisory) calls() []models.AdvisoryQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AdvisoryQuery(nil), f.queries...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) published() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

type recordingArchive struct {
	mu      sync.Mutex
	records []models.SearchRecord
}

func (a *recordingArchive) Upsert(_ context.Context, r models.SearchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return nil
}

func (a *recordingArchive) stored() []models.SearchRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.SearchRecord(nil), a.records...)
}

func strPtr(s string) *string { return &s }

func poi(id, name string) models.POI {
	return models.POI{ID: id, Name: name}
}
