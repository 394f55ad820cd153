package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognizedDecision is returned when a reviewer or critic answers with
// a verdict outside its contract.
var ErrUnrecognizedDecision = errors.New("unrecognized decision")

// ErrIncompleteDecision is returned when a verdict is missing the fields it
// requires.
var ErrIncompleteDecision = errors.New("incomplete decision")

// ReviewVerdict is the reviewer's answer for one search attempt.
type ReviewVerdict string

const (
	ReviewAccept ReviewVerdict = "accept"
	ReviewRefine ReviewVerdict = "refine"
)

// ParseReviewVerdict normalizes a raw reviewer verdict. "approve" is taken
// as accept.
func ParseReviewVerdict(raw string) (ReviewVerdict, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accept", "approve":
		return ReviewAccept, nil
	case "refine":
		return ReviewRefine, nil
	default:
		return "", fmt.Errorf("review verdict %q: %w", raw, ErrUnrecognizedDecision)
	}
}

// ReviewDecision is the reviewer output for one search attempt.
type ReviewDecision struct {
	Decision     ReviewVerdict `json:"decision" bson:"decision"`
	Reason       string        `json:"reason" bson:"reason"`
	NewParams    *QueryParams  `json:"new_params,omitempty" bson:"newParams,omitempty"`
	SelectedPOIs []POI         `json:"selected_pois,omitempty" bson:"selectedPois,omitempty"`
}

// Validate checks the verdict is one of the known values.
func (d ReviewDecision) Validate() error {
	if _, err := ParseReviewVerdict(string(d.Decision)); err != nil {
		return err
	}
	return nil
}

// CritiqueVerdict is the itinerary critic's answer.
type CritiqueVerdict string

const (
	CritiqueAccept  CritiqueVerdict = "accept"
	CritiqueWarning CritiqueVerdict = "warning"
	CritiqueRefine  CritiqueVerdict = "refine"
	CritiqueUseTool CritiqueVerdict = "use_tool"
)

// ParseCritiqueVerdict normalizes a raw critic verdict.
func ParseCritiqueVerdict(raw string) (CritiqueVerdict, error) {
	switch v := CritiqueVerdict(strings.ToLower(strings.TrimSpace(raw))); v {
	case CritiqueAccept, CritiqueWarning, CritiqueRefine, CritiqueUseTool:
		return v, nil
	case "approve":
		return CritiqueAccept, nil
	default:
		return "", fmt.Errorf("critique verdict %q: %w", raw, ErrUnrecognizedDecision)
	}
}

// Terminal reports whether the verdict ends a critique loop.
func (v CritiqueVerdict) Terminal() bool {
	return v == CritiqueAccept || v == CritiqueWarning || v == CritiqueRefine
}

// AdvisoryQuery describes an advisory lookup requested by the critic.
type AdvisoryQuery struct {
	URL       string   `json:"url" bson:"url"`
	Query     string   `json:"query" bson:"query"`
	Countries []string `json:"countries,omitempty" bson:"countries,omitempty"`
}

// CritiqueDecision is the critic output for one itinerary check.
type CritiqueDecision struct {
	Decision   CritiqueVerdict `json:"decision" bson:"decision"`
	Feedback   string          `json:"feedback,omitempty" bson:"feedback,omitempty"`
	ToolParams *AdvisoryQuery  `json:"tool_params,omitempty" bson:"toolParams,omitempty"`
}

// Validate enforces the per-verdict required fields.
func (d CritiqueDecision) Validate() error {
	v, err := ParseCritiqueVerdict(string(d.Decision))
	if err != nil {
		return err
	}
	switch v {
	case CritiqueWarning, CritiqueRefine:
		if strings.TrimSpace(d.Feedback) == "" {
			return fmt.Errorf("%s without feedback: %w", v, ErrIncompleteDecision)
		}
	case CritiqueUseTool:
		if d.ToolParams == nil || strings.TrimSpace(d.ToolParams.Query) == "" {
			return fmt.Errorf("%s without tool params: %w", v, ErrIncompleteDecision)
		}
	}
	return nil
}
