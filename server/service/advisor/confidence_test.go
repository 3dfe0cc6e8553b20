package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimator_EmptyResults(t *testing.T) {
	e := NewEstimator(0.6)

	tests := []struct {
		name   string
		result *RAGResult
	}{
		{"NilResult", nil},
		{"EmptyText", &RAGResult{Matches: []RAGMatch{{Snippet: "s", Score: 0.9}}}},
		{"NoMatches", &RAGResult{Text: "an answer"}},
		{"EmptyMatchList", &RAGResult{Text: "an answer", Matches: []RAGMatch{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate("any query", tt.result)
			assert.False(t, est.Answerable)
			assert.Zero(t, est.Confidence)
		})
	}
}

func TestEstimator_Threshold(t *testing.T) {
	e := NewEstimator(0.6)

	t.Run("AboveThreshold", func(t *testing.T) {
		est := e.Estimate("What are the prerequisites for CS160?", &RAGResult{
			Text:    "CS160 requires CS15.",
			Matches: []RAGMatch{{Snippet: "prereqs", Score: 0.92}, {Snippet: "other", Score: 0.4}},
		})
		assert.True(t, est.Answerable)
		assert.InDelta(t, 0.92, est.Confidence, 0.001)
	})

	t.Run("BelowThreshold", func(t *testing.T) {
		est := e.Estimate("What is the course load?", &RAGResult{
			Text:    "Students usually take four courses.",
			Matches: []RAGMatch{{Snippet: "weak", Score: 0.31}},
		})
		assert.False(t, est.Answerable)
		assert.Equal(t, "low_relevance", est.Reason)
	})

	t.Run("ConfidenceIsTopScore", func(t *testing.T) {
		est := e.Estimate("q", &RAGResult{
			Text:    "answer",
			Matches: []RAGMatch{{Score: 0.7}, {Score: 0.95}},
		})
		// Matches arrive ranked; the top-ranked score is used as-is.
		assert.InDelta(t, 0.7, est.Confidence, 0.001)
	})
}

func TestEstimator_UncertaintyPhrases(t *testing.T) {
	e := NewEstimator(0.5)

	tests := []struct {
		name string
		text string
	}{
		{"NotSure", "I'm not sure, but maybe CS15."},
		{"DontKnow", "Honestly I don't know the answer."},
		{"NotInDocument", "That topic is not in the document provided."},
		{"CaseInsensitive", "I'M NOT SURE about that."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate("q", &RAGResult{
				Text:    tt.text,
				Matches: []RAGMatch{{Score: 0.9}},
			})
			assert.False(t, est.Answerable)
			assert.Equal(t, "uncertain_answer", est.Reason)
		})
	}
}

func TestEstimator_UnknownEntity(t *testing.T) {
	e := NewEstimator(0.5).WithKnownEntities([]string{"CS160", "CS15", "COMP 61"})

	t.Run("KnownCourseCode", func(t *testing.T) {
		est := e.Estimate("What are the prerequisites for CS160?", &RAGResult{
			Text:    "CS160 requires CS15.",
			Matches: []RAGMatch{{Score: 0.9}},
		})
		assert.True(t, est.Answerable)
	})

	t.Run("UnknownCourseCode", func(t *testing.T) {
		est := e.Estimate("What is CS999?", &RAGResult{
			Text:    "CS999 is an advanced seminar.",
			Matches: []RAGMatch{{Score: 0.9}},
		})
		assert.False(t, est.Answerable)
		assert.Equal(t, "unknown_entity", est.Reason)
	})

	t.Run("SpacedCodeNormalized", func(t *testing.T) {
		est := e.Estimate("Tell me about COMP 61", &RAGResult{
			Text:    "COMP 61 covers discrete math.",
			Matches: []RAGMatch{{Score: 0.9}},
		})
		assert.True(t, est.Answerable)
	})

	t.Run("NoEntitySetSkipsCheck", func(t *testing.T) {
		bare := NewEstimator(0.5)
		est := bare.Estimate("What is CS999?", &RAGResult{
			Text:    "CS999 is an advanced seminar.",
			Matches: []RAGMatch{{Score: 0.9}},
		})
		assert.True(t, est.Answerable)
	})
}

func TestEstimator_CustomUncertaintyPhrases(t *testing.T) {
	e := NewEstimator(0.5).WithUncertaintyPhrases([]string{"cannot answer"})

	est := e.Estimate("q", &RAGResult{
		Text:    "I don't know.", // default phrase no longer configured
		Matches: []RAGMatch{{Score: 0.9}},
	})
	assert.True(t, est.Answerable)

	est = e.Estimate("q", &RAGResult{
		Text:    "I cannot answer that.",
		Matches: []RAGMatch{{Score: 0.9}},
	})
	assert.False(t, est.Answerable)
}
