package intelligence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wayfarer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	answer  string
	err     error
	prompts []Prompt
}

func (s *stubGenerator) Generate(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return s.answer, s.err
}

func newTestReasoner(answer string) (*Reasoner, *stubGenerator) {
	gen := &stubGenerator{answer: answer}
	return NewReasoner(gen, ReasonerOptions{
		ReviewModel: "review-model",
		AdvisoryURL: "https://advisories.example/list.html",
	}, zap.NewNop()), gen
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"plain", `{"city":"Rome"}`},
		{"json fence", "```json\n{\"city\":\"Rome\"}\n```"},
		{"bare fence", "Here you go:\n```\n{\"city\":\"Rome\"}\n```\nEnjoy"},
		{"surrounding space", "  \n{\"city\":\"Rome\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out models.QueryParams
			require.NoError(t, ExtractJSON(tt.in, &out))
			assert.Equal(t, "Rome", out.City)
		})
	}

	var out models.QueryParams
	assert.True(t, errors.Is(ExtractJSON("not json", &out), ErrMalformedJSON))
	assert.True(t, errors.Is(ExtractJSON("``````", &out), ErrMalformedJSON))
}

func TestGatherIncludesHistoryAndCritique(t *testing.T) {
	r, gen := newTestReasoner(`{"response":"Ciao!","user_itinerary_request_summary":null,"user_language":"it"}`)

	result, err := r.Gather(context.Background(), models.GatherRequest{
		History: []models.ChatMessage{
			{Source: models.SourceUser, Message: "Voglio andare a Roma"},
			{Source: models.SourceAssistant, Message: "Quando?"},
		},
		Critique: &models.CritiqueFeedback{
			Decision:         models.CritiqueRefine,
			CurrentItinerary: "Rome, 4 months",
			Feedback:         "trip too long",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ciao!", result.Response)
	assert.Nil(t, result.Summary)
	require.NotNil(t, result.Language)
	assert.Equal(t, "it", *result.Language)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.True(t, p.JSON)
	assert.Contains(t, p.System, "user: Voglio andare a Roma")
	assert.Contains(t, p.System, "Lorenzo: Quando?")
	assert.Contains(t, p.Task, `"critique_message"`)
	assert.Contains(t, p.Task, "trip too long")
}

func TestGatherRejectsEmptyResponse(t *testing.T) {
	r, _ := newTestReasoner(`{"response":""}`)
	_, err := r.Gather(context.Background(), models.GatherRequest{Message: "hi"})
	assert.True(t, errors.Is(err, ErrMalformedJSON))
}

func TestCritiqueFillsAdvisoryURL(t *testing.T) {
	r, gen := newTestReasoner("```json\n{\"decision\":\"use_tool\",\"tool_params\":{\"query\":\"France\",\"countries\":[\"France\"]}}\n```")

	decision, err := r.Critique(context.Background(), models.CritiqueRequest{
		Itinerary: "10 days in France",
		History:   []models.CritiqueEntry{{Itinerary: "x", Advisory: "Spain: Level 2", Countries: []string{"Spain"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.CritiqueUseTool, decision.Decision)
	require.NotNil(t, decision.ToolParams)
	assert.Equal(t, "https://advisories.example/list.html", decision.ToolParams.URL)

	p := gen.prompts[0]
	assert.Contains(t, p.System, "Spain: Level 2")
	assert.Contains(t, p.System, "https://advisories.example/list.html")
	assert.True(t, strings.HasSuffix(p.Task, "10 days in France"))
}

func TestReviewUsesReviewModel(t *testing.T) {
	r, gen := newTestReasoner(`{"decision":"approve","reason":"fine","selected_pois":[{"id":"p1","name":"Colosseum"}]}`)

	decision, err := r.Review(context.Background(), models.ReviewRequest{UserRequest: "Rome"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewVerdict("approve"), decision.Decision)
	require.Len(t, decision.SelectedPOIs, 1)
	assert.Equal(t, "p1", decision.SelectedPOIs[0].ID)
	assert.Equal(t, "review-model", gen.prompts[0].Model)
	assert.Contains(t, gen.prompts[0].Task, `"user_request":"Rome"`)
}

func TestGenerateTitleTrimsQuotes(t *testing.T) {
	r, gen := newTestReasoner(" \"Refinando búsqueda\"\n")

	title, err := r.GenerateTitle(context.Background(), models.TitleRequest{Content: "more museums", Language: "es"})
	require.NoError(t, err)
	assert.Equal(t, "Refinando búsqueda", title)
	assert.False(t, gen.prompts[0].JSON)
	assert.Contains(t, gen.prompts[0].System, "Write it in es")
}

func TestExtractAdvisory(t *testing.T) {
	r, gen := newTestReasoner("France: Level 2, exercise increased caution due to terrorism.")

	text, err := r.ExtractAdvisory(context.Background(), models.AdvisoryQuery{
		Query:     "advisory for France",
		Countries: []string{"France"},
	}, "France Travel Advisory Level 2")
	require.NoError(t, err)
	assert.Contains(t, text, "Level 2")
	assert.Contains(t, gen.prompts[0].Task, "Countries: France")

	r, _ = newTestReasoner(" ")
	_, err = r.ExtractAdvisory(context.Background(), models.AdvisoryQuery{Query: "q"}, "page")
	assert.True(t, errors.Is(err, ErrEmptyAdvisory))
}

func TestGeneratorErrorIsWrapped(t *testing.T) {
	boom := errors.New("quota")
	gen := &stubGenerator{err: boom}
	r := NewReasoner(gen, ReasonerOptions{}, zap.NewNop())

	_, err := r.ProposeParams(context.Background(), "Rome")
	assert.True(t, errors.Is(err, boom))
}
