package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestSetLanguageNeverUnsets(t *testing.T) {
	var c SessionContext
	c.SetLanguage(nil)
	assert.Nil(t, c.Language)

	c.SetLanguage(strPtr(" es "))
	assert.Equal(t, "es", c.LanguageOrEmpty())

	c.SetLanguage(nil)
	c.SetLanguage(strPtr(""))
	assert.Equal(t, "es", c.LanguageOrEmpty())

	c.SetLanguage(strPtr("fr"))
	assert.Equal(t, "fr", c.LanguageOrEmpty())
}

func TestAdvisedCountries(t *testing.T) {
	c := SessionContext{}
	c.AppendCritique(CritiqueEntry{Itinerary: "x", Decision: CritiqueUseTool, Countries: []string{"Spain"}})
	c.AppendCritique(CritiqueEntry{Itinerary: "x", Advisory: "Level 1", Countries: []string{"France", " Italy"}})

	seen := c.AdvisedCountries()

	assert.Len(t, seen, 2)
	assert.Contains(t, seen, "france")
	assert.Contains(t, seen, "italy")
	assert.NotContains(t, seen, "spain")
}

func TestCompleteSummary(t *testing.T) {
	_, ok := GatherResult{}.CompleteSummary()
	assert.False(t, ok)
	_, ok = GatherResult{Summary: strPtr("null")}.CompleteSummary()
	assert.False(t, ok)
	_, ok = GatherResult{Summary: strPtr("ok")}.CompleteSummary()
	assert.False(t, ok)

	s, ok := GatherResult{Summary: strPtr("Paris, 3 days, museums")}.CompleteSummary()
	assert.True(t, ok)
	assert.Equal(t, "Paris, 3 days, museums", s)
}
