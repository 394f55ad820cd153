package orchestration

import (
	"testing"

	"wayfarer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(replies []Reply) []string {
	out := make([]string, 0, len(replies))
	for _, r := range replies {
		out = append(out, r.Text)
	}
	return out
}

func TestMailboxSingleSlotKeepsLatest(t *testing.T) {
	m := NewMailbox(1, DropOldest, nil)

	assert.False(t, m.Push(Reply{Text: "first"}))
	assert.True(t, m.Push(Reply{Text: "second"}))

	r, ok := m.Take()
	require.True(t, ok)
	assert.Equal(t, "second", r.Text)
	assert.Equal(t, 1, m.Dropped())

	_, ok = m.Take()
	assert.False(t, ok)
}

func TestMailboxRejectKeepsQueued(t *testing.T) {
	m := NewMailbox(2, RejectNewest, nil)
	m.Push(Reply{Text: "a"})
	m.Push(Reply{Text: "b"})

	assert.True(t, m.Push(Reply{Text: "c"}))
	assert.Equal(t, []string{"a", "b"}, texts(m.Pending()))
	assert.Equal(t, 1, m.Dropped())
}

func TestMailboxRequeue(t *testing.T) {
	t.Run("room left", func(t *testing.T) {
		m := NewMailbox(3, DropOldest, []Reply{{Text: "later"}})
		assert.False(t, m.Requeue(Reply{Text: "retry", Attempt: 1}))
		assert.Equal(t, []string{"retry", "later"}, texts(m.Pending()))
	})

	t.Run("drop oldest loses the retry", func(t *testing.T) {
		m := NewMailbox(1, DropOldest, []Reply{{Text: "newer"}})
		assert.True(t, m.Requeue(Reply{Text: "retry"}))
		assert.Equal(t, []string{"newer"}, texts(m.Pending()))
	})

	t.Run("reject drops the newest", func(t *testing.T) {
		m := NewMailbox(2, RejectNewest, []Reply{{Text: "x"}, {Text: "y"}})
		assert.True(t, m.Requeue(Reply{Text: "retry"}))
		assert.Equal(t, []string{"retry", "x"}, texts(m.Pending()))
	})
}

func TestMailboxPendingIsACopy(t *testing.T) {
	m := NewMailbox(2, DropOldest, []Reply{{Text: "a"}})
	p := m.Pending()
	p[0].Text = "mutated"
	assert.Equal(t, "a", m.Pending()[0].Text)

	m.Clear()
	assert.Zero(t, m.Len())
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := ParseOverflowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DropOldest, p)

	p, err = ParseOverflowPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, RejectNewest, p)

	_, err = ParseOverflowPolicy("keep_all")
	assert.Error(t, err)
}

func TestHistoryPolicyKeepsNewest(t *testing.T) {
	c := &models.SessionContext{}
	for _, msg := range []string{"1", "2", "3", "4"} {
		c.AppendChat(models.SourceUser, msg)
	}
	c.AppendCritique(models.CritiqueEntry{Decision: models.CritiqueAccept})

	HistoryPolicy{MaxTranscript: 2}.Apply(c)

	require.Len(t, c.Transcript, 2)
	assert.Equal(t, "3", c.Transcript[0].Message)
	assert.Equal(t, "4", c.Transcript[1].Message)
	assert.Len(t, c.CritiqueHistory, 1, "zero limit is unbounded")
}

func TestPendingAdvisoryNarrowsCountries(t *testing.T) {
	m := newMachine(SessionInput{SessionID: "s"})
	m.session.AppendCritique(models.CritiqueEntry{Advisory: "Level 1", Countries: []string{"France"}})
	m.session.AppendCritique(models.CritiqueEntry{Decision: models.CritiqueUseTool, Countries: []string{"Spain"}})

	q, ok := m.pendingAdvisory(models.AdvisoryQuery{Query: "q", Countries: []string{" france", "Spain", "spain"}})
	require.True(t, ok)
	assert.Equal(t, []string{"Spain"}, q.Countries)

	_, ok = m.pendingAdvisory(models.AdvisoryQuery{Query: "q", Countries: []string{"FRANCE"}})
	assert.False(t, ok)

	q, ok = m.pendingAdvisory(models.AdvisoryQuery{Query: "q"})
	assert.True(t, ok)
	assert.Empty(t, q.Countries)
}
