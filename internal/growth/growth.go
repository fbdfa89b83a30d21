// Package growth produces deterministic species growth projections. The
// curve shape is data (per-species parameters), not code; only determinism,
// monotonicity and exact horizon length are contractual.
package growth

import (
	"fmt"
	"math"
	"strings"
)

// Params defines one species' asymptotic growth curve (von Bertalanffy):
// growth(t) = Asymptote * (1 - exp(-Rate*t))^Shape, t in months.
type Params struct {
	Asymptote float64 // biomass ceiling, tonnes AGB per hectare
	Rate      float64 // per-month growth constant, > 0
	Shape     float64 // curve inflection, >= 1
}

// Sample is one projected point: month ordinal (1-based) and growth value.
type Sample struct {
	Month  int     `json:"month"`
	Growth float64 `json:"growth"`
}

// UnknownSpeciesError reports a species missing from the registry.
type UnknownSpeciesError struct {
	Species string
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("unknown species %q", e.Species)
}

// ValidationError reports a horizon outside the accepted range.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Registry holds the species parameter set and the horizon ceiling. It is
// immutable after construction and safe for unbounded concurrent use.
type Registry struct {
	species    map[string]Params
	maxHorizon int
}

// Default parameter set. Values approximate published AGB accumulation
// curves per species; precision is not contractual.
var defaultSpecies = map[string]Params{
	"pine":        {Asymptote: 210, Rate: 0.011, Shape: 2.1},
	"spruce":      {Asymptote: 250, Rate: 0.009, Shape: 2.3},
	"oak":         {Asymptote: 320, Rate: 0.006, Shape: 2.6},
	"beech":       {Asymptote: 300, Rate: 0.007, Shape: 2.5},
	"birch":       {Asymptote: 160, Rate: 0.014, Shape: 1.9},
	"douglas fir": {Asymptote: 340, Rate: 0.010, Shape: 2.2},
	"eucalyptus":  {Asymptote: 180, Rate: 0.028, Shape: 1.6},
	"teak":        {Asymptote: 220, Rate: 0.015, Shape: 2.0},
	"mahogany":    {Asymptote: 260, Rate: 0.009, Shape: 2.4},
	"acacia":      {Asymptote: 150, Rate: 0.024, Shape: 1.7},
}

// NewRegistry builds a registry with the default species set.
func NewRegistry(maxHorizonMonths int) *Registry {
	return NewRegistryWith(defaultSpecies, maxHorizonMonths)
}

// NewRegistryWith builds a registry from an externally supplied parameter
// set. Species names are matched case-insensitively.
func NewRegistryWith(params map[string]Params, maxHorizonMonths int) *Registry {
	species := make(map[string]Params, len(params))
	for name, p := range params {
		species[strings.ToLower(name)] = p
	}
	return &Registry{species: species, maxHorizon: maxHorizonMonths}
}

// Generate returns exactly horizonMonths samples for the species, months
// 1..horizonMonths, growth values non-decreasing. Pure: identical inputs
// yield identical output.
func (r *Registry) Generate(species string, horizonMonths int) ([]Sample, error) {
	if horizonMonths <= 0 {
		return nil, &ValidationError{Reason: "horizon must be a positive number of months"}
	}
	if horizonMonths > r.maxHorizon {
		return nil, &ValidationError{Reason: fmt.Sprintf("horizon exceeds maximum of %d months", r.maxHorizon)}
	}
	p, ok := r.species[strings.ToLower(species)]
	if !ok {
		return nil, &UnknownSpeciesError{Species: species}
	}

	samples := make([]Sample, horizonMonths)
	for month := 1; month <= horizonMonths; month++ {
		v := p.Asymptote * math.Pow(1-math.Exp(-p.Rate*float64(month)), p.Shape)
		samples[month-1] = Sample{Month: month, Growth: round4(v)}
	}
	return samples, nil
}

// Species returns the known species names, for API error hints.
func (r *Registry) Species() []string {
	names := make([]string, 0, len(r.species))
	for name := range r.species {
		names = append(names, name)
	}
	return names
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
