package advisor

import (
	"regexp"
	"strings"
)

// Default uncertainty phrases. A generated answer containing any of these is
// never trusted, regardless of retrieval score.
var defaultUncertaintyPhrases = []string{
	"i'm not sure",
	"i am not sure",
	"i don't know",
	"i do not know",
	"not in the document",
	"not enough information",
}

// courseCodePattern matches course-code-like tokens such as "CS160" or
// "COMP 61". Questions naming a code absent from the handbook are routed to
// a human rather than answered from weak retrieval.
var courseCodePattern = regexp.MustCompile(`\b([A-Z]{2,4})\s?(\d{2,4}[A-Z]?)\b`)

// Estimation is the confidence decision for one generated answer.
type Estimation struct {
	Answerable bool
	Confidence float32
	Reason     string
}

// Estimator turns a retrieval result into a binary trust decision.
// It is a pure function of its inputs plus configuration.
type Estimator struct {
	threshold          float32
	uncertaintyPhrases []string
	knownEntities      map[string]struct{}
}

// NewEstimator creates an estimator with the given confidence threshold.
func NewEstimator(threshold float32) *Estimator {
	return &Estimator{
		threshold:          threshold,
		uncertaintyPhrases: defaultUncertaintyPhrases,
		knownEntities:      make(map[string]struct{}),
	}
}

// WithUncertaintyPhrases replaces the uncertainty phrase list.
func (e *Estimator) WithUncertaintyPhrases(phrases []string) *Estimator {
	e.uncertaintyPhrases = phrases
	return e
}

// WithKnownEntities registers course codes extracted from the source
// document. Matching is case-insensitive and whitespace-insensitive.
func (e *Estimator) WithKnownEntities(entities []string) *Estimator {
	for _, entity := range entities {
		e.knownEntities[normalizeEntity(entity)] = struct{}{}
	}
	return e
}

// Estimate decides whether a generated answer is trustworthy.
// An empty or malformed result is never answerable: the pipeline fails
// closed toward escalation, never open toward fabrication.
func (e *Estimator) Estimate(query string, result *RAGResult) Estimation {
	if result == nil || result.Text == "" || len(result.Matches) == 0 {
		return Estimation{Answerable: false, Confidence: 0, Reason: "empty_result"}
	}

	confidence := result.Matches[0].Score

	if confidence < e.threshold {
		return Estimation{Answerable: false, Confidence: confidence, Reason: "low_relevance"}
	}

	lower := strings.ToLower(result.Text)
	for _, phrase := range e.uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return Estimation{Answerable: false, Confidence: confidence, Reason: "uncertain_answer"}
		}
	}

	if unknown := e.unknownEntity(query); unknown != "" {
		return Estimation{Answerable: false, Confidence: confidence, Reason: "unknown_entity"}
	}

	return Estimation{Answerable: true, Confidence: confidence, Reason: "high_relevance"}
}

// unknownEntity returns the first course-code-like token in the query that
// is not among the known entities, or "" when all tokens are known.
// With no known-entity set configured, the check is skipped entirely.
func (e *Estimator) unknownEntity(query string) string {
	if len(e.knownEntities) == 0 {
		return ""
	}
	for _, match := range courseCodePattern.FindAllString(query, -1) {
		if _, ok := e.knownEntities[normalizeEntity(match)]; !ok {
			return match
		}
	}
	return ""
}

func normalizeEntity(entity string) string {
	return strings.ToUpper(strings.ReplaceAll(entity, " ", ""))
}
