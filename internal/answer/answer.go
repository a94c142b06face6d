// Package answer turns retrieved chunks into a grounded, cited answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ziadkadry99/regqa/internal/llm"
	"github.com/ziadkadry99/regqa/internal/provider"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// NotFound is the answer given when the documents do not cover the question.
const NotFound = "I don't know based on the provided documents."

// snippetLength is the number of characters of chunk text returned with each source.
const snippetLength = 200

// ErrSynthesisUnavailable is returned when the completion provider keeps
// failing with retryable errors.
var ErrSynthesisUnavailable = errors.New("answer synthesis unavailable")

// Source is one retrieved chunk cited by an answer.
type Source struct {
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

// Answer is the synthesized response and the chunks it was built from.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`
	// Usage is reported by the provider; Cost is an estimate in USD.
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
}

// Options configures a Synthesizer.
type Options struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Retry        provider.Policy
}

// Synthesizer asks a completion provider to answer from retrieved context.
type Synthesizer struct {
	provider llm.Provider
	opts     Options
}

// New returns a Synthesizer. The provider is wrapped with opts.Retry.
func New(p llm.Provider, opts Options) *Synthesizer {
	return &Synthesizer{
		provider: llm.NewRetryingProvider(p, opts.Retry),
		opts:     opts,
	}
}

// Synthesize answers question from chunks. With no chunks the provider is
// not called and the not-found answer is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []vectordb.SearchResult) (*Answer, error) {
	if len(chunks) == 0 {
		return &Answer{Text: NotFound, Sources: []Source{}}, nil
	}

	prompt := BuildPrompt(question, chunks)
	promptTokens := llm.EstimateTokens(s.opts.SystemPrompt) + llm.EstimateTokens(prompt)
	log.Debug().Str("component", "answer").Int("chunks", len(chunks)).
		Int("prompt_tokens_est", promptTokens).Msg("requesting completion")

	req := llm.CompletionRequest{
		Model: s.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.opts.SystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}

	start := time.Now()
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		if provider.KindOf(err).Retryable() {
			return nil, fmt.Errorf("%w: %w", ErrSynthesisUnavailable, err)
		}
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	// Some backends do not report usage; fall back to estimates.
	inputTokens, outputTokens := resp.InputTokens, resp.OutputTokens
	if inputTokens == 0 {
		inputTokens = promptTokens
	}
	if outputTokens == 0 {
		outputTokens = llm.EstimateTokens(resp.Content)
	}

	log.Debug().Str("component", "answer").Str("model", resp.Model).
		Int("chunks", len(chunks)).Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).Dur("elapsed", time.Since(start)).
		Msg("answer synthesized")

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		text = NotFound
	}
	return &Answer{
		Text:         text,
		Sources:      Sources(chunks),
		Model:        resp.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         llm.EstimateCost(resp.Model, inputTokens, outputTokens),
	}, nil
}

// BuildPrompt numbers each chunk as a context block followed by the question.
func BuildPrompt(question string, chunks []vectordb.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, r := range chunks {
		fmt.Fprintf(&b, "[%d] (source: %s, page %d)\n%s\n\n", i+1, r.Chunk.Source, r.Chunk.Page, r.Chunk.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\nAnswer:")
	return b.String()
}

// Sources converts retrieval results into citations with truncated content.
func Sources(chunks []vectordb.SearchResult) []Source {
	out := make([]Source, 0, len(chunks))
	for _, r := range chunks {
		out = append(out, Source{
			Source:   r.Chunk.Source,
			Page:     r.Chunk.Page,
			Content:  Snippet(r.Chunk.Text),
			Distance: r.Distance,
		})
	}
	return out
}

// Snippet shortens text to 200 characters followed by "..." when longer.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
