package advisor

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFAQBank struct {
	entries []*FAQEntry
	err     error
}

func (f *fakeFAQBank) ListFAQs(_ context.Context) ([]*FAQEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeSemanticMatcher struct {
	id      int32
	matched bool
	err     error
	calls   int
}

func (f *fakeSemanticMatcher) MatchID(_ context.Context, _ string, _ []*FAQEntry) (int32, bool, error) {
	f.calls++
	return f.id, f.matched, f.err
}

func testBank() *fakeFAQBank {
	return &fakeFAQBank{entries: []*FAQEntry{
		{ID: 1, Question: "What are the prerequisites for CS300?", Answer: "CS200 and MATH101."},
		{ID: 2, Question: "When is the add/drop deadline?", Answer: "End of week two.", SuggestedQuestions: []string{"How do I drop a course?"}},
	}}
}

func TestFAQMatcher_ExactMatch(t *testing.T) {
	t.Run("CaseAndWhitespaceInsensitive", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{}
		m := NewFAQMatcher(testBank(), semantic, false)

		entry := m.Match(context.Background(), "  what are the  prerequisites for cs300? ")
		require.NotNil(t, entry)
		assert.Equal(t, int32(1), entry.ID)
		// Exact hit never reaches the LLM.
		assert.Zero(t, semantic.calls)
	})

	t.Run("CaseSensitiveMode", func(t *testing.T) {
		m := NewFAQMatcher(testBank(), nil, true)

		assert.Nil(t, m.Match(context.Background(), "what are the prerequisites for cs300?"))
		require.NotNil(t, m.Match(context.Background(), "What are the prerequisites for CS300?"))
	})
}

func TestFAQMatcher_SemanticMatch(t *testing.T) {
	t.Run("Hit", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{id: 2, matched: true}
		m := NewFAQMatcher(testBank(), semantic, false)

		entry := m.Match(context.Background(), "until when can I still add courses?")
		require.NotNil(t, entry)
		assert.Equal(t, int32(2), entry.ID)
		assert.Equal(t, 1, semantic.calls)
	})

	t.Run("Miss", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{matched: false}
		m := NewFAQMatcher(testBank(), semantic, false)

		assert.Nil(t, m.Match(context.Background(), "can my cat audit CS300?"))
	})

	t.Run("UnknownIDIsMiss", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{id: 99, matched: true}
		m := NewFAQMatcher(testBank(), semantic, false)

		assert.Nil(t, m.Match(context.Background(), "something"))
	})

	t.Run("LLMErrorIsMiss", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{err: errors.New("upstream down")}
		m := NewFAQMatcher(testBank(), semantic, false)

		assert.Nil(t, m.Match(context.Background(), "something"))
	})

	t.Run("NilSemanticDisablesStep", func(t *testing.T) {
		m := NewFAQMatcher(testBank(), nil, false)

		assert.Nil(t, m.Match(context.Background(), "until when can I still add courses?"))
	})
}

func TestFAQMatcher_Degraded(t *testing.T) {
	t.Run("BankOutageIsMiss", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{id: 1, matched: true}
		m := NewFAQMatcher(&fakeFAQBank{err: errors.New("db gone")}, semantic, false)

		assert.Nil(t, m.Match(context.Background(), "anything"))
		assert.Zero(t, semantic.calls)
	})

	t.Run("EmptyBankIsMiss", func(t *testing.T) {
		semantic := &fakeSemanticMatcher{id: 1, matched: true}
		m := NewFAQMatcher(&fakeFAQBank{}, semantic, false)

		assert.Nil(t, m.Match(context.Background(), "anything"))
		assert.Zero(t, semantic.calls)
	})
}
