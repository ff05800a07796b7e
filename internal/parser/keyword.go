package parser

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"pet-triage-backend/internal/feature"
)

// labelValue matches a label, a colon and a short token. Markdown emphasis
// around the label is tolerated. Text is NFKC-normalised first, so
// full-width colons and commas are already ASCII.
const labelValue = `[\s*]*:[\s*]*([a-z]+(?:[ _-][a-z]+)?|[^\s,.;:。、!?()\[\]*]+)`

var (
	colorPattern       = regexp.MustCompile(`(?:颜色|色泽|colou?r)` + labelValue)
	texturePattern     = regexp.MustCompile(`(?:质地|texture)` + labelValue)
	consistencyPattern = regexp.MustCompile(`(?:形状|性状|consistency)` + labelValue)
	sizePattern        = regexp.MustCompile(`(?:大小|分量|size)` + labelValue)
	confidencePattern  = regexp.MustCompile(`(?:置信度|可信度|confidence)[\s*]*:[\s*]*(\d+(?:\.\d+)?)\s*(%)?`)
)

// KeywordStrategy interprets free text with bilingual keyword sets and
// label-prefixed patterns.
type KeywordStrategy struct{}

func (KeywordStrategy) Name() string { return "keyword" }

// Extract fills rec from text. Absent labels keep the record's defaults;
// a label whose token is not in the vocabulary becomes unknown.
func (KeywordStrategy) Extract(text string, rec *feature.Record) error {
	t := normalize(text)

	rec.Blood = containsAny(t, bloodKeywords)
	rec.Worms = containsAny(t, wormKeywords)
	rec.Mucus = containsAny(t, mucusKeywords)

	if tok, ok := labelled(colorPattern, t); ok {
		rec.Color = lookup(colorSynonyms, tok, feature.ColorUnknown)
	}
	if tok, ok := labelled(texturePattern, t); ok {
		rec.Texture = lookup(textureSynonyms, tok, feature.TextureUnknown)
	}
	if tok, ok := labelled(consistencyPattern, t); ok {
		rec.Consistency = lookup(consistencySynonyms, tok, feature.ConsistencyUnknown)
	}
	if tok, ok := labelled(sizePattern, t); ok {
		rec.Size = lookup(sizeSynonyms, tok, feature.SizeUnknown)
	}

	rec.Classification = classify(t)

	if m := confidencePattern.FindStringSubmatch(t); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Confidence = scaleConfidence(v, m[2] == "%")
		}
	}
	return nil
}

// scaleConfidence reads values with a percent sign, or bare values from 2 to
// 100, as percentages. Anything else is a fraction and is clamped, so a
// stray 1.5 means fully confident rather than 1.5%.
func scaleConfidence(v float64, percent bool) float64 {
	if percent || (v >= 2 && v <= 100) {
		v /= 100
	}
	return feature.ClampConfidence(v)
}

func classify(t string) feature.Classification {
	for _, tier := range severityTiers {
		if containsAny(t, tier.keywords) {
			return tier.class
		}
	}
	return feature.ClassificationNormal
}

func labelled(re *regexp.Regexp, t string) (string, bool) {
	m := re.FindStringSubmatch(t)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// normalize applies NFKC then case folding. Casers hold state, so one is
// built per call.
func normalize(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}
