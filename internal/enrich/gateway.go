// Package enrich turns note text into AI-derived summaries, rewrites and
// tags. Every call is a single round trip to the generator; nothing is
// retried or cached.
package enrich

import (
	"context"
	"log/slog"
	"strings"

	"smartnotes/internal/errs"
	"smartnotes/internal/obs"
)

// Generator is the external text-generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const (
	summarizePrompt = "Summarize this note in exactly one short, professional sentence:\n\n"
	improvePrompt   = "Improve this text by fixing grammar, improving clarity, and making it more professional. Keep the same meaning. Return ONLY the improved text:\n\n"
	tagsPrompt      = "Generate 3-5 relevant single-word tags for this note. Return ONLY comma-separated words:\n\n"

	tagSeparator = ","
)

// Gateway exposes the three enrichment operations.
type Gateway struct {
	gen Generator
	log *slog.Logger
}

func NewGateway(gen Generator, log *slog.Logger) *Gateway {
	return &Gateway{gen: gen, log: log}
}

// Summarize returns a one-sentence summary of content.
func (g *Gateway) Summarize(ctx context.Context, content string) (string, error) {
	if err := requireContent(content); err != nil {
		return "", err
	}
	return g.complete(ctx, "summarize", summarizePrompt+content)
}

// Improve returns content rewritten for grammar and clarity.
func (g *Gateway) Improve(ctx context.Context, content string) (string, error) {
	if err := requireContent(content); err != nil {
		return "", err
	}
	return g.complete(ctx, "improve", improvePrompt+content)
}

// ExtractTags returns the tags the generator suggests for the note, in the
// order it produced them.
func (g *Gateway) ExtractTags(ctx context.Context, title, content string) ([]string, error) {
	if err := requireContent(content); err != nil {
		return nil, err
	}
	raw, err := g.complete(ctx, "tags", tagsPrompt+"Title: "+title+"\nContent: "+content)
	if err != nil {
		return nil, err
	}
	return SplitTags(raw), nil
}

// SplitTags splits a comma-separated completion into trimmed, non-empty tags.
func SplitTags(raw string) []string {
	tags := make([]string, 0)
	for _, piece := range strings.Split(raw, tagSeparator) {
		if piece = strings.TrimSpace(piece); piece != "" {
			tags = append(tags, piece)
		}
	}
	return tags
}

func (g *Gateway) complete(ctx context.Context, op, prompt string) (string, error) {
	log := obs.From(ctx, g.log)
	log.Debug("enrichment request", "op", op, "prompt", obs.TruncateForLog(strings.ReplaceAll(prompt, "\n", "\\n"), 80))

	out, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn("enrichment failed", "op", op, "error", err)
		return "", errs.Wrap(errs.Upstream, upstreamMessage(err), err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errs.New(errs.Upstream, "AI provider returned an empty response")
	}
	return out, nil
}

func requireContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.New(errs.ContentRequired, "Content is required")
	}
	return nil
}

func upstreamMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "AI generation failed"
}
