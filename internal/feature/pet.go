package feature

import "strings"

// Pet is optional owner-supplied metadata passed to the report generator.
type Pet struct {
	Name     string  `json:"name,omitempty"`
	Species  string  `json:"species,omitempty"`
	Breed    string  `json:"breed,omitempty"`
	AgeYears float64 `json:"age_years,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// IsZero reports whether no pet metadata was supplied.
func (p Pet) IsZero() bool {
	return strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.Species) == "" &&
		strings.TrimSpace(p.Breed) == "" && p.AgeYears == 0 && p.WeightKg == 0
}
