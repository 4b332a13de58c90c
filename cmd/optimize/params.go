// Package main provides CMA-ES tuning of steering and movement parameters.
package main

import (
	"github.com/pthm-cable/tilenav/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Steering
			{Name: "probe_step_deg", Path: "steering.probe_step_deg", Min: 15, Max: 90, Default: 45},
			{Name: "max_probe_deg", Path: "steering.max_probe_deg", Min: 90, Max: 180, Default: 135},
			{Name: "commit_deg", Path: "steering.commit_deg", Min: 30, Max: 180, Default: 90},
			// Movement
			{Name: "arrival_threshold", Path: "movement.arrival_threshold", Min: 0.5, Max: 6, Default: 2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Steering.ProbeStepDeg = clamped[0]
	cfg.Steering.MaxProbeDeg = clamped[1]
	cfg.Steering.CommitDeg = clamped[2]
	cfg.Movement.ArrivalThreshold = clamped[3]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Steering.ProbeStepDeg,
		cfg.Steering.MaxProbeDeg,
		cfg.Steering.CommitDeg,
		cfg.Movement.ArrivalThreshold,
	}
}
