// Package feature defines the structured interpretation of a vision
// backend's output.
package feature

import "time"

type Color string

const (
	ColorBrown     Color = "brown"
	ColorDarkBrown Color = "dark_brown"
	ColorYellow    Color = "yellow"
	ColorGreen     Color = "green"
	ColorDarkRed   Color = "dark_red"
	ColorBlack     Color = "black"
	ColorUnknown   Color = "unknown"
)

type Texture string

const (
	TextureFormed  Texture = "formed"
	TextureSolid   Texture = "solid"
	TextureSoft    Texture = "soft"
	TextureLoose   Texture = "loose"
	TextureWatery  Texture = "watery"
	TextureTarry   Texture = "tarry"
	TextureUnknown Texture = "unknown"
)

type Consistency string

const (
	ConsistencyNormal       Consistency = "normal"
	ConsistencyWellFormed   Consistency = "well_formed"
	ConsistencySlightlySoft Consistency = "slightly_soft"
	ConsistencySoft         Consistency = "soft"
	ConsistencyLoose        Consistency = "loose"
	ConsistencyWatery       Consistency = "watery"
	ConsistencyBloody       Consistency = "bloody"
	ConsistencySticky       Consistency = "sticky"
	ConsistencyUnknown      Consistency = "unknown"
)

type Size string

const (
	SizeNormal        Size = "normal"
	SizeSmall         Size = "small"
	SizeSlightlyLarge Size = "slightly_large"
	SizeLargeVolume   Size = "large_volume"
	SizeUnknown       Size = "unknown"
)

type Classification string

const (
	ClassificationNormal            Classification = "normal"
	ClassificationMildAbnormal      Classification = "mild_abnormal"
	ClassificationAbnormal          Classification = "abnormal"
	ClassificationSevere            Classification = "severe"
	ClassificationParasitesDetected Classification = "parasites_detected"
)

// Source tags.
const (
	SourceBuildFallback = "build_fallback"
)

// DefaultConfidence is used when the backend reports none.
const DefaultConfidence = 0.85

// Record is the canonical feature record. Every field has a safe default.
type Record struct {
	Color          Color          `json:"color"`
	Texture        Texture        `json:"texture"`
	Consistency    Consistency    `json:"consistency"`
	Size           Size           `json:"size"`
	Frequency      string         `json:"frequency"`
	Blood          bool           `json:"blood"`
	Mucus          bool           `json:"mucus"`
	Worms          bool           `json:"worms"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Source         string         `json:"source"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}

// Defaults returns a record holding only documented defaults.
func Defaults(source string, analyzedAt time.Time) Record {
	return Record{
		Color:          ColorBrown,
		Texture:        TextureFormed,
		Consistency:    ConsistencyNormal,
		Size:           SizeNormal,
		Frequency:      "regular",
		Classification: ClassificationNormal,
		Confidence:     DefaultConfidence,
		Source:         source,
		AnalyzedAt:     analyzedAt.UTC(),
	}
}

// Placeholder is the clearly labelled record returned when no vision
// backend is configured outside an end-user request.
func Placeholder(analyzedAt time.Time) Record {
	return Defaults(SourceBuildFallback, analyzedAt)
}

// IsPlaceholder reports whether r was produced without a vision backend.
func (r Record) IsPlaceholder() bool {
	return r.Source == SourceBuildFallback
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
