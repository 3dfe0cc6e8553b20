package advisor

import (
	"context"
	"fmt"

	"github.com/campushq/advisor/plugin/llm"
	"github.com/campushq/advisor/plugin/llmproxy"
)

// ProxyGeneratorConfig holds per-deployment generation parameters.
type ProxyGeneratorConfig struct {
	Model        string
	SessionID    string
	Temperature  float32
	LastK        int
	RAGThreshold float32
	RAGTopK      int
}

// ProxyGenerator adapts the RAG proxy client to the Generator interface.
// This is the primary generation path; the proxy holds the uploaded handbook
// and returns ranked context snippets with every answer.
type ProxyGenerator struct {
	client *llmproxy.Client
	cfg    ProxyGeneratorConfig
}

// NewProxyGenerator creates the proxy-backed generator.
func NewProxyGenerator(client *llmproxy.Client, cfg ProxyGeneratorConfig) *ProxyGenerator {
	if cfg.Model == "" {
		cfg.Model = "4o-mini"
	}
	if cfg.RAGTopK <= 0 {
		cfg.RAGTopK = 3
	}
	return &ProxyGenerator{client: client, cfg: cfg}
}

var _ Generator = (*ProxyGenerator)(nil)

func (g *ProxyGenerator) Generate(ctx context.Context, opts *GenerateOptions) (*RAGResult, error) {
	resp, err := g.client.Generate(ctx, &llmproxy.GenerateRequest{
		Model:        g.cfg.Model,
		System:       opts.System,
		Query:        composeQuery(opts),
		Temperature:  g.cfg.Temperature,
		LastK:        g.cfg.LastK,
		SessionID:    g.cfg.SessionID,
		RAGThreshold: g.cfg.RAGThreshold,
		RAGUsage:     true,
		RAGTopK:      g.cfg.RAGTopK,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]RAGMatch, len(resp.RAGContext))
	for i, m := range resp.RAGContext {
		matches[i] = RAGMatch{Snippet: m.Snippet, Score: m.Score}
	}
	return &RAGResult{Text: resp.Text, Matches: matches}, nil
}

// DirectGenerator adapts the direct LLM service to the Generator interface.
// It carries no retrieval, so results have no matches and the estimator
// fails closed: every direct generation degrades to escalation. Useful as a
// drafting fallback when no proxy endpoint is configured.
type DirectGenerator struct {
	svc llm.Service
}

// NewDirectGenerator creates the direct-LLM generator.
func NewDirectGenerator(svc llm.Service) *DirectGenerator {
	return &DirectGenerator{svc: svc}
}

var _ Generator = (*DirectGenerator)(nil)

func (g *DirectGenerator) Generate(ctx context.Context, opts *GenerateOptions) (*RAGResult, error) {
	text, err := g.svc.Chat(ctx, []llm.Message{
		llm.SystemPrompt(opts.System),
		llm.UserMessage(composeQuery(opts)),
	})
	if err != nil {
		return nil, err
	}
	return &RAGResult{Text: text}, nil
}

// composeQuery prepends the session's recent context to the question.
func composeQuery(opts *GenerateOptions) string {
	if opts.RecentContext == "" {
		return opts.Query
	}
	return fmt.Sprintf("Recent conversation:\n%s\n\nQuestion: %s", opts.RecentContext, opts.Query)
}
