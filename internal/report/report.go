// Package report writes the owner-facing narrative for a feature record.
// Generation never fails: without a working text backend the offline
// template is used.
package report

import (
	"context"
	"strings"
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/shared/metrics"
	"pet-triage-backend/internal/shared/telemetry"
	"pet-triage-backend/internal/shared/trust"
)

// Language selects prompt and template wording.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// Report sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Completer sends one prompt to a text-generation backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Report is the generated narrative and how it was produced.
type Report struct {
	Text           string `json:"text"`
	Source         string `json:"source"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Generator produces reports. A nil Completer always uses the template.
type Generator struct {
	Completer Completer
	Language  Language
	Timeout   time.Duration
}

// Configured reports whether a text backend is wired in.
func (g *Generator) Configured() bool {
	return g != nil && g.Completer != nil
}

// Generate returns the report for rec. It never returns an error.
func (g *Generator) Generate(ctx context.Context, rec feature.Record, ownerNote string, pet feature.Pet) Report {
	lang := LanguageZH
	if g != nil && g.Language == LanguageEN {
		lang = LanguageEN
	}

	if !g.Configured() {
		return fallback(rec, lang, "text backend not configured")
	}
	if err := trust.Check("report generator"); err != nil {
		return fallback(rec, lang, err.Error())
	}

	callCtx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	text, err := g.complete(callCtx, BuildPrompt(rec, ownerNote, pet, lang))
	if err != nil {
		telemetry.Warn("report.fallback", map[string]any{"error": err.Error()})
		return fallback(rec, lang, err.Error())
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback(rec, lang, "text backend returned empty content")
	}
	return Report{Text: text, Source: SourceLLM}
}

// complete shields the pipeline from a misbehaving Completer.
func (g *Generator) complete(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = panicError{value: r}
		}
	}()
	return g.Completer.Complete(ctx, prompt)
}

type panicError struct{ value any }

func (p panicError) Error() string { return "text backend panicked" }

func fallback(rec feature.Record, lang Language, reason string) Report {
	metrics.IncReportFallback()
	return Report{Text: Fallback(rec, lang), Source: SourceFallback, FallbackReason: reason}
}
