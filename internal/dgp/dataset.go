// Package dgp generates synthetic datasets from known data-generating
// processes. Every generator is a pure function of its parameters and the
// supplied random stream: the same seed yields a bit-identical dataset.
package dgp

import (
	"math/rand/v2"

	"github.com/nvandessel/causalsim/internal/simerr"
)

// Dataset is one synthetic sample owned by a single replication.
type Dataset interface {
	// Len is the number of independent units.
	Len() int
	// Degenerate returns a simerr.DegenerateSampleError when the sample
	// lacks the variation the estimators need.
	Degenerate() error
}

// Generator draws datasets of type D for a scenario.
type Generator[D Dataset] interface {
	// Name is the design identifier ("psm", "iv", "did").
	Name() string
	// Truth is the causal parameter the design is built around.
	Truth() float64
	// MinSampleSize is the smallest N every estimator of the design can fit.
	MinSampleSize() int
	// Draw produces a dataset with exactly n units.
	Draw(r *rand.Rand, n int) (D, error)
}

// NewRand returns a PCG generator seeded from seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// CrossSection is a cross-sectional sample. Columns are parallel slices of
// length N.
type CrossSection struct {
	Covariates [][]float64
	Treatment  []float64
	// Instrument is nil unless the design is instrumented.
	Instrument []float64
	Outcome    []float64
}

// Len returns the number of units.
func (c *CrossSection) Len() int { return len(c.Outcome) }

// Arms counts units with Treatment == 1 and Treatment == 0.
func (c *CrossSection) Arms() (treated, control int) {
	for _, d := range c.Treatment {
		switch d {
		case 1:
			treated++
		case 0:
			control++
		}
	}
	return treated, control
}

// Degenerate checks for a single treatment arm, or for an instrumented
// sample, an instrument without variation.
func (c *CrossSection) Degenerate() error {
	if c.Len() == 0 {
		return simerr.Degenerate("empty sample")
	}
	if c.Instrument != nil {
		if !varies(c.Instrument) {
			return simerr.Degenerate("instrument has no variation")
		}
		return nil
	}
	treated, control := c.Arms()
	if treated == 0 || control == 0 {
		return simerr.Degenerate("sample has %d treated and %d control units", treated, control)
	}
	return nil
}

// Resample returns the sample formed by the rows in idx, in order.
func (c *CrossSection) Resample(idx []int) *CrossSection {
	out := &CrossSection{
		Covariates: make([][]float64, len(c.Covariates)),
		Treatment:  pick(c.Treatment, idx),
		Outcome:    pick(c.Outcome, idx),
	}
	for j, col := range c.Covariates {
		out.Covariates[j] = pick(col, idx)
	}
	if c.Instrument != nil {
		out.Instrument = pick(c.Instrument, idx)
	}
	return out
}

// PanelData is a balanced two-period panel stored row-wise, one row per
// (unit, time) pair, units contiguous.
type PanelData struct {
	Unit        []int
	Time        []int
	Treated     []float64
	Post        []float64
	Interaction []float64
	X           []float64
	Y           []float64
	Units       int
}

// Len returns the number of units (clusters), not rows.
func (p *PanelData) Len() int { return p.Units }

// Rows returns the number of (unit, time) observations.
func (p *PanelData) Rows() int { return len(p.Y) }

// Degenerate checks that both treated and control units are present.
func (p *PanelData) Degenerate() error {
	if p.Units < 2 {
		return simerr.Degenerate("panel has %d units", p.Units)
	}
	seen := make(map[int]float64, p.Units)
	for i, u := range p.Unit {
		seen[u] = p.Treated[i]
	}
	var treated, control int
	for _, d := range seen {
		if d == 1 {
			treated++
		} else {
			control++
		}
	}
	if treated == 0 || control == 0 {
		return simerr.Degenerate("panel has %d treated and %d control units", treated, control)
	}
	return nil
}

func pick(src []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

func varies(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return true
		}
	}
	return false
}
