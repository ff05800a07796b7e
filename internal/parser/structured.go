package parser

import (
	"encoding/json"
	"strings"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/shared/apperr"
)

// StructuredStrategy reads a JSON object emitted by the model. It pairs
// with the structured analysis prompt.
type StructuredStrategy struct{}

func (StructuredStrategy) Name() string { return "structured" }

type structuredFields struct {
	Color          *string  `json:"color"`
	Texture        *string  `json:"texture"`
	Consistency    *string  `json:"consistency"`
	Size           *string  `json:"size"`
	Blood          *bool    `json:"blood"`
	Mucus          *bool    `json:"mucus"`
	Worms          *bool    `json:"worms"`
	Classification *string  `json:"classification"`
	Confidence     *float64 `json:"confidence"`
}

// Extract decodes the first JSON object in text. Missing keys keep their
// defaults; a text without a decodable object is a parse error.
func (StructuredStrategy) Extract(text string, rec *feature.Record) error {
	obj, ok := jsonObject(text)
	if !ok {
		return apperr.Parse("structured output has no JSON object")
	}
	var f structuredFields
	if err := json.Unmarshal([]byte(obj), &f); err != nil {
		return apperr.Parse("structured output: %v", err)
	}

	if f.Color != nil {
		rec.Color = lookup(colorSynonyms, normalize(*f.Color), feature.ColorUnknown)
	}
	if f.Texture != nil {
		rec.Texture = lookup(textureSynonyms, normalize(*f.Texture), feature.TextureUnknown)
	}
	if f.Consistency != nil {
		rec.Consistency = lookup(consistencySynonyms, normalize(*f.Consistency), feature.ConsistencyUnknown)
	}
	if f.Size != nil {
		rec.Size = lookup(sizeSynonyms, normalize(*f.Size), feature.SizeUnknown)
	}
	if f.Blood != nil {
		rec.Blood = *f.Blood
	}
	if f.Mucus != nil {
		rec.Mucus = *f.Mucus
	}
	if f.Worms != nil {
		rec.Worms = *f.Worms
	}
	if f.Classification != nil {
		rec.Classification = lookup(classificationSynonyms, normalize(*f.Classification), feature.ClassificationNormal)
	}
	if f.Confidence != nil {
		rec.Confidence = scaleConfidence(*f.Confidence, false)
	}
	return nil
}

// jsonObject returns the outermost {...} span, dropping any code fence.
func jsonObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
