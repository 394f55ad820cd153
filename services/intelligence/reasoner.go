package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wayfarer/models"

	"go.uber.org/zap"
)

const (
	conversationTemperature = 0.7
	decisionTemperature     = 0.2
)

// ErrEmptyAdvisory is returned when no advisory could be extracted.
var ErrEmptyAdvisory = errors.New("no advisory information found")

type ReasonerOptions struct {
	// ReviewModel is used for search reviews. Empty uses the client default.
	ReviewModel string
	// AdvisoryURL is suggested to the critic for advisory lookups.
	AdvisoryURL string
}

// Reasoner turns the session's natural-language decisions into model calls.
type Reasoner struct {
	gen    Generator
	opts   ReasonerOptions
	logger *zap.Logger
}

func NewReasoner(gen Generator, opts ReasonerOptions, logger *zap.Logger) *Reasoner {
	return &Reasoner{gen: gen, opts: opts, logger: logger}
}

func (r *Reasoner) Gather(ctx context.Context, req models.GatherRequest) (models.GatherResult, error) {
	system := gatherInstructions
	if history := formatHistory(req.History); history != "" {
		system += "\n\nConversation so far, for context only:\n" + history
	}

	task := req.Message
	if req.Critique != nil {
		raw, err := json.Marshal(map[string]any{"critique_message": req.Critique})
		if err != nil {
			return models.GatherResult{}, err
		}
		task = string(raw)
	}
	if strings.TrimSpace(task) == "" {
		task = "(the user has not written anything yet)"
	}

	var result models.GatherResult
	if err := r.generateJSON(ctx, "gather", Prompt{
		System:      system,
		Task:        task,
		Temperature: conversationTemperature,
	}, &result); err != nil {
		return models.GatherResult{}, err
	}
	if strings.TrimSpace(result.Response) == "" {
		return models.GatherResult{}, fmt.Errorf("gather: %w: empty response", ErrMalformedJSON)
	}
	return result, nil
}

func (r *Reasoner) Critique(ctx context.Context, req models.CritiqueRequest) (models.CritiqueDecision, error) {
	history := "[]"
	if len(req.History) > 0 {
		raw, err := json.Marshal(req.History)
		if err != nil {
			return models.CritiqueDecision{}, err
		}
		history = string(raw)
	}

	var decision models.CritiqueDecision
	if err := r.generateJSON(ctx, "critique", Prompt{
		System:      fmt.Sprintf(critiqueInstructions, r.opts.AdvisoryURL, history),
		Task:        "Review this itinerary:\n" + req.Itinerary,
		Temperature: decisionTemperature,
	}, &decision); err != nil {
		return models.CritiqueDecision{}, err
	}
	if decision.ToolParams != nil && decision.ToolParams.URL == "" {
		decision.ToolParams.URL = r.opts.AdvisoryURL
	}
	return decision, nil
}

func (r *Reasoner) ProposeParams(ctx context.Context, request string) (models.QueryParams, error) {
	var params models.QueryParams
	err := r.generateJSON(ctx, "propose params", Prompt{
		System:      proposeInstructions,
		Task:        request,
		Temperature: decisionTemperature,
	}, &params)
	return params, err
}

func (r *Reasoner) Review(ctx context.Context, req models.ReviewRequest) (models.ReviewDecision, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return models.ReviewDecision{}, err
	}
	var decision models.ReviewDecision
	err = r.generateJSON(ctx, "review", Prompt{
		Model:       r.opts.ReviewModel,
		System:      reviewInstructions,
		Task:        string(raw),
		Temperature: decisionTemperature,
	}, &decision)
	return decision, err
}

func (r *Reasoner) Summarize(ctx context.Context, req models.SummaryRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	text, err := r.gen.Generate(ctx, Prompt{
		System:      summaryInstructions,
		Task:        string(raw),
		Temperature: conversationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (r *Reasoner) GenerateTitle(ctx context.Context, req models.TitleRequest) (string, error) {
	lang := req.Language
	if lang == "" {
		lang = "English"
	}
	text, err := r.gen.Generate(ctx, Prompt{
		System:      fmt.Sprintf(titleInstructions, lang),
		Task:        fmt.Sprintf("Update message: %s\nUser language: %s", req.Content, lang),
		Temperature: decisionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	return strings.Trim(strings.TrimSpace(text), `"'`), nil
}

// ExtractAdvisory answers an advisory query from the text of an advisory
// page.
func (r *Reasoner) ExtractAdvisory(ctx context.Context, query models.AdvisoryQuery, page string) (string, error) {
	task := fmt.Sprintf("Query: %s\n", query.Query)
	if len(query.Countries) > 0 {
		task += fmt.Sprintf("Countries: %s\n", strings.Join(query.Countries, ", "))
	}
	task += "\nPage text:\n" + page

	text, err := r.gen.Generate(ctx, Prompt{
		System:      advisoryInstructions,
		Task:        task,
		Temperature: decisionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("advisory extraction: %w", err)
	}
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return "", ErrEmptyAdvisory
	}
	return text, nil
}

func (r *Reasoner) generateJSON(ctx context.Context, step string, p Prompt, out any) error {
	p.JSON = true
	text, err := r.gen.Generate(ctx, p)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := ExtractJSON(text, out); err != nil {
		r.logger.Warn("Model answer is not valid JSON", zap.String("step", step), zap.String("answer", text))
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// formatHistory renders the transcript as "source: message" lines.
func formatHistory(history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, msg.Source+": "+msg.Message)
	}
	return strings.Join(lines, "\n")
}
