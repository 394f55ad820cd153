package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCritiqueVerdict(t *testing.T) {
	tests := []struct {
		raw  string
		want CritiqueVerdict
	}{
		{"accept", CritiqueAccept},
		{" Warning ", CritiqueWarning},
		{"REFINE", CritiqueRefine},
		{"use_tool", CritiqueUseTool},
		{"approve", CritiqueAccept},
	}
	for _, tt := range tests {
		got, err := ParseCritiqueVerdict(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseCritiqueVerdict("maybe")
	assert.ErrorIs(t, err, ErrUnrecognizedDecision)
	_, err = ParseCritiqueVerdict("")
	assert.ErrorIs(t, err, ErrUnrecognizedDecision)
}

func TestParseReviewVerdict(t *testing.T) {
	v, err := ParseReviewVerdict("Approve")
	require.NoError(t, err)
	assert.Equal(t, ReviewAccept, v)

	v, err = ParseReviewVerdict("refine")
	require.NoError(t, err)
	assert.Equal(t, ReviewRefine, v)

	_, err = ParseReviewVerdict("warning")
	assert.ErrorIs(t, err, ErrUnrecognizedDecision)
}

func TestCritiqueDecisionValidate(t *testing.T) {
	assert.NoError(t, CritiqueDecision{Decision: CritiqueAccept}.Validate())
	assert.NoError(t, CritiqueDecision{Decision: CritiqueRefine, Feedback: "trip too long"}.Validate())

	err := CritiqueDecision{Decision: CritiqueWarning}.Validate()
	assert.ErrorIs(t, err, ErrIncompleteDecision)

	err = CritiqueDecision{Decision: CritiqueUseTool}.Validate()
	assert.ErrorIs(t, err, ErrIncompleteDecision)

	err = CritiqueDecision{Decision: CritiqueUseTool, ToolParams: &AdvisoryQuery{Query: "France"}}.Validate()
	assert.NoError(t, err)

	err = CritiqueDecision{Decision: "skip"}.Validate()
	assert.ErrorIs(t, err, ErrUnrecognizedDecision)
}

func TestCritiqueVerdictTerminal(t *testing.T) {
	assert.True(t, CritiqueAccept.Terminal())
	assert.True(t, CritiqueWarning.Terminal())
	assert.True(t, CritiqueRefine.Terminal())
	assert.False(t, CritiqueUseTool.Terminal())
}
