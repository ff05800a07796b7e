// Package parser turns raw vision backend output into a feature record.
package parser

import (
	"fmt"
	"strings"
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/vision"
)

// Strategy interprets the model's message text. Implementations start from
// a record holding defaults and overwrite what they recognise.
type Strategy interface {
	Name() string
	Extract(text string, rec *feature.Record) error
}

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "keyword":
		return KeywordStrategy{}, nil
	case "structured":
		return StructuredStrategy{}, nil
	default:
		return nil, apperr.Configuration("unknown parser strategy %q", name)
	}
}

// Parser applies a Strategy to raw backend output.
type Parser struct {
	strategy Strategy
	now      func() time.Time
}

// New builds a Parser. A nil now uses time.Now.
func New(strategy Strategy, now func() time.Time) *Parser {
	if strategy == nil {
		strategy = KeywordStrategy{}
	}
	if now == nil {
		now = time.Now
	}
	return &Parser{strategy: strategy, now: now}
}

// StrategyName reports the active strategy.
func (p *Parser) StrategyName() string { return p.strategy.Name() }

// Parse converts raw into a record. Placeholder output yields the labelled
// placeholder record. Any failure while extracting, including a panic, is
// returned as a parse error and never as a plausible record.
func (p *Parser) Parse(raw vision.RawOutput) (rec feature.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = feature.Record{}
			err = apperr.Parse("extract features: %v", r)
		}
	}()

	now := p.now()
	if raw.Placeholder {
		return feature.Placeholder(now), nil
	}

	text, err := MessageText(raw.Payload)
	if err != nil {
		return feature.Record{}, err
	}

	rec = feature.Defaults(sourceTag(raw), now)
	if err := p.strategy.Extract(text, &rec); err != nil {
		return feature.Record{}, fmt.Errorf("%s strategy: %w", p.strategy.Name(), err)
	}
	return rec, nil
}

// sourceTag names the producing backend, prefixed with the model family
// when it is recognisable.
func sourceTag(raw vision.RawOutput) string {
	if strings.Contains(strings.ToLower(raw.Model), "qwen") {
		return "qwen:" + string(raw.Backend)
	}
	return string(raw.Backend)
}
