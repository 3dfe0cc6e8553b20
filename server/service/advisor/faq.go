package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/campushq/advisor/store"
)

// FAQBank exposes read access to the stored question bank.
type FAQBank interface {
	ListFAQs(ctx context.Context) ([]*FAQEntry, error)
}

// StoreFAQBank adapts the persisted FAQ store to the matcher.
type StoreFAQBank struct {
	Store *store.Store
}

func (b *StoreFAQBank) ListFAQs(ctx context.Context) ([]*FAQEntry, error) {
	faqs, err := b.Store.ListFAQs(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]*FAQEntry, len(faqs))
	for i, faq := range faqs {
		entries[i] = &FAQEntry{
			ID:                 faq.ID,
			Question:           faq.Question,
			Answer:             faq.Answer,
			SuggestedQuestions: faq.SuggestedQuestions,
		}
	}
	return entries, nil
}

// SemanticMatcher asks an LLM whether a query is equivalent to one of the
// cached questions. Returns the matched entry id, whether anything matched,
// and any transport error.
type SemanticMatcher interface {
	MatchID(ctx context.Context, query string, candidates []*FAQEntry) (int32, bool, error)
}

// FAQMatcher resolves a query against the question bank: exact text match
// first, then semantic match through the LLM.
type FAQMatcher struct {
	bank          FAQBank
	semantic      SemanticMatcher
	caseSensitive bool
}

// NewFAQMatcher creates a matcher. semantic may be nil, which disables the
// semantic step.
func NewFAQMatcher(bank FAQBank, semantic SemanticMatcher, caseSensitive bool) *FAQMatcher {
	return &FAQMatcher{
		bank:          bank,
		semantic:      semantic,
		caseSensitive: caseSensitive,
	}
}

// Match returns the FAQ entry for the query, or nil when nothing matches.
// A bank outage or an unparsable semantic result degrades to no match so the
// student is never blocked on the cache.
func (m *FAQMatcher) Match(ctx context.Context, query string) *FAQEntry {
	entries, err := m.bank.ListFAQs(ctx)
	if err != nil {
		slog.Warn("faq bank unreachable, skipping cache", "error", err)
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	if entry := m.exactMatch(query, entries); entry != nil {
		return entry
	}

	if m.semantic == nil {
		return nil
	}

	id, matched, err := m.semantic.MatchID(ctx, query, entries)
	if err != nil {
		slog.Warn("semantic faq match failed, treating as miss", "error", err)
		return nil
	}
	if !matched {
		return nil
	}
	for _, entry := range entries {
		if entry.ID == id {
			return entry
		}
	}
	// The model returned an id outside the candidate list.
	slog.Warn("semantic faq match returned unknown id", "id", id)
	return nil
}

func (m *FAQMatcher) exactMatch(query string, entries []*FAQEntry) *FAQEntry {
	normalized := m.normalize(query)
	for _, entry := range entries {
		if m.normalize(entry.Question) == normalized {
			return entry
		}
	}
	return nil
}

func (m *FAQMatcher) normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if !m.caseSensitive {
		text = strings.ToLower(text)
	}
	return text
}

// OpenAIMatcherConfig holds settings for the LLM semantic matcher.
type OpenAIMatcherConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIMatcher implements SemanticMatcher on an OpenAI-compatible endpoint
// with a strict JSON-schema response.
type OpenAIMatcher struct {
	client *openai.Client
	model  string
}

// NewOpenAIMatcher creates a semantic matcher.
func NewOpenAIMatcher(cfg OpenAIMatcherConfig) *OpenAIMatcher {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIMatcher{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (m *OpenAIMatcher) MatchID(ctx context.Context, query string, candidates []*FAQEntry) (int32, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var listing strings.Builder
	for _, entry := range candidates {
		fmt.Fprintf(&listing, "%d. %s\n", entry.ID, entry.Question)
	}

	req := openai.ChatCompletionRequest{
		Model:       m.model,
		MaxTokens:   30,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: faqMatcherSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Cached questions:\n%s\nStudent question: %s", listing.String(), query),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "faq_match",
				Strict: true,
				Schema: faqMatcherJSONSchema,
			},
		},
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		return 0, false, fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, false, fmt.Errorf("empty response from LLM")
	}

	var raw struct {
		Matched bool  `json:"matched"`
		ID      int32 `json:"id"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &raw); err != nil {
		return 0, false, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	slog.Debug("semantic faq match completed",
		"matched", raw.Matched,
		"id", raw.ID,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return raw.ID, raw.Matched, nil
}

// faqMatcherSystemPrompt instructs the model to match only true equivalents.
const faqMatcherSystemPrompt = `You match a student question against cached FAQ questions.
Return matched=true and the id only when a cached question asks the same thing.
Rephrasings match; questions about different courses, policies, or deadlines do not.
When in doubt, return matched=false.`

// faqMatcherJSONSchema defines the strict output schema.
var faqMatcherJSONSchema = &jsonSchema{
	Type: "object",
	Properties: map[string]*jsonSchema{
		"matched": {
			Type:        "boolean",
			Description: "Whether a cached question is semantically equivalent",
		},
		"id": {
			Type:        "integer",
			Description: "The id of the matching cached question, 0 when none",
		},
	},
	Required:             []string{"matched", "id"},
	AdditionalProperties: false,
}

type jsonSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*jsonSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Description          string                 `json:"description,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func (s *jsonSchema) MarshalJSON() ([]byte, error) {
	type alias jsonSchema
	return json.Marshal((*alias)(s))
}
