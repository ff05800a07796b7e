// Package risk derives the triage risk level from a feature record.
package risk

import (
	"fmt"

	"pet-triage-backend/internal/feature"
)

// Level is an ordered severity signal: low < medium < high.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Rank returns the ordering position of l, or -1 for an unknown level.
func (l Level) Rank() int {
	switch l {
	case Low:
		return 0
	case Medium:
		return 1
	case High:
		return 2
	default:
		return -1
	}
}

// Valid reports whether l is one of the three levels.
func (l Level) Valid() bool { return l.Rank() >= 0 }

// ParseLevel converts stored text back into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// Classify maps a record to its risk level. The first matching rule wins
// and only the record's fields are consulted, never its source.
func Classify(r feature.Record) Level {
	if r.Blood || r.Worms ||
		r.Classification == feature.ClassificationSevere ||
		r.Classification == feature.ClassificationParasitesDetected {
		return High
	}
	if r.Mucus ||
		r.Classification == feature.ClassificationAbnormal ||
		r.Classification == feature.ClassificationMildAbnormal {
		return Medium
	}
	return Low
}
