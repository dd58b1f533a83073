// Package experiment wires the data-generating processes to the estimators
// compared on them, and runs concrete scenario specs through the simulation
// orchestrator.
package experiment

import (
	"fmt"
	"math"
	"slices"
)

// Design identifiers.
const (
	DesignPSM = "psm"
	DesignIV  = "iv"
	DesignDiD = "did"
)

// Default estimator labels.
const (
	LabelMatching = "psm_nn"
	LabelOLS      = "ols"
	Label2SLS     = "2sls"
	LabelDiDBasic = "did_basic"
	LabelDiDFE    = "did_twfe_x"
)

// Design describes a built-in data-generating process and the estimators
// compared on it.
type Design struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Truth       float64  `json:"truth"`
	Parameter   string   `json:"parameter"`
	Estimators  []string `json:"estimators"`
	// Preset run parameters.
	Seed         uint64    `json:"seed"`
	SampleSizes  []int     `json:"sample_sizes"`
	Replications int       `json:"replications"`
	Strengths    []float64 `json:"strengths,omitempty"`
}

var designs = []Design{
	{
		Name:         DesignPSM,
		Description:  "Selection on observables with a logistic propensity; nearest-neighbour matching with bootstrap SE",
		Truth:        4.0,
		Parameter:    "ATT",
		Estimators:   []string{LabelMatching},
		Seed:         12345,
		SampleSizes:  []int{100, 200},
		Replications: 1000,
	},
	{
		Name:         DesignIV,
		Description:  "Endogenous treatment with a binary instrument; OLS with controls vs 2SLS",
		Truth:        2.0,
		Parameter:    "LATE",
		Estimators:   []string{LabelOLS, Label2SLS},
		Seed:         12345,
		SampleSizes:  []int{100},
		Replications: 1000,
		Strengths:    []float64{0.3, 0.05},
	},
	{
		Name:         DesignDiD,
		Description:  "Two-period panel with half the units treated; basic and unit fixed-effects DiD with cluster-robust SE",
		Truth:        1.5,
		Parameter:    "ATT",
		Estimators:   []string{LabelDiDBasic, LabelDiDFE},
		Seed:         14286,
		SampleSizes:  []int{100},
		Replications: 1000,
	},
}

// Designs returns the built-in designs.
func Designs() []Design {
	out := make([]Design, len(designs))
	for i, d := range designs {
		d.Estimators = slices.Clone(d.Estimators)
		d.SampleSizes = slices.Clone(d.SampleSizes)
		d.Strengths = slices.Clone(d.Strengths)
		out[i] = d
	}
	return out
}

// Lookup returns the design called name.
func Lookup(name string) (Design, bool) {
	for _, d := range Designs() {
		if d.Name == name {
			return d, true
		}
	}
	return Design{}, false
}

// DesignNames lists the valid design identifiers.
func DesignNames() []string {
	names := make([]string, len(designs))
	for i, d := range designs {
		names[i] = d.Name
	}
	return names
}

// StrengthLabel describes an instrument strength γ.
func StrengthLabel(gamma float64) string {
	switch {
	case closeTo(gamma, 0.3):
		return fmt.Sprintf("strong instrument (γ = %.2f)", gamma)
	case closeTo(gamma, 0.05):
		return fmt.Sprintf("weak instrument (γ = %.2f)", gamma)
	default:
		return fmt.Sprintf("γ = %.2f", gamma)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}
