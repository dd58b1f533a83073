package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/causalsim/internal/aggregate"
	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/estimate"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/simerr"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// Spec is one concrete scenario: a design with every parameter fixed.
type Spec struct {
	Design string `json:"design"`
	// Name identifies the scenario in results; it must be unique in a run.
	Name string `json:"name"`
	// Label is a human description, e.g. an instrument strength label.
	Label        string  `json:"label,omitempty"`
	N            int     `json:"n"`
	Replications int     `json:"replications"`
	Seed         uint64  `json:"seed"`
	MaxRedraws   int     `json:"max_redraws,omitempty"`
	Effect       float64 `json:"effect"`
	Strength     float64 `json:"strength,omitempty"`
	Violation    bool    `json:"violation,omitempty"`
	PreTrend     float64 `json:"pre_trend,omitempty"`
	// Labels overrides the design's estimator labels, in order.
	Labels []string `json:"labels,omitempty"`
}

// DefaultPreTrend is the extra per-period trend of treated units when
// parallel trends are violated.
const DefaultPreTrend = 0.5

// NewSpec returns the design's preset spec for sample size n.
func NewSpec(design string, n int) (Spec, error) {
	d, ok := Lookup(design)
	if !ok {
		return Spec{}, simerr.InvalidConfig("design", "unknown design %q (valid: %v)", design, DesignNames())
	}
	s := Spec{
		Design:       d.Name,
		N:            n,
		Replications: d.Replications,
		Seed:         d.Seed,
		Effect:       d.Truth,
	}
	switch design {
	case DesignIV:
		s.Strength = d.Strengths[0]
	case DesignDiD:
		s.PreTrend = DefaultPreTrend
	}
	s.Name = s.DefaultName()
	s.Label = s.DefaultLabel()
	return s, nil
}

// DefaultName builds a scenario name from the varying parameters.
func (s Spec) DefaultName() string {
	name := fmt.Sprintf("%s/n=%d", s.Design, s.N)
	switch s.Design {
	case DesignIV:
		name += fmt.Sprintf("/gamma=%.2f", s.Strength)
	case DesignDiD:
		if s.Violation {
			name += "/violation"
		} else {
			name += "/parallel"
		}
	}
	return name
}

// DefaultLabel builds the human description of the scenario.
func (s Spec) DefaultLabel() string {
	switch s.Design {
	case DesignIV:
		return StrengthLabel(s.Strength)
	case DesignDiD:
		if s.Violation {
			return "parallel trends violated"
		}
		return "parallel trends hold"
	default:
		return fmt.Sprintf("N = %d", s.N)
	}
}

// EstimatorLabels returns the labels in effect for s.
func (s Spec) EstimatorLabels() ([]string, error) {
	d, ok := Lookup(s.Design)
	if !ok {
		return nil, simerr.InvalidConfig("design", "unknown design %q (valid: %v)", s.Design, DesignNames())
	}
	if len(s.Labels) == 0 {
		return d.Estimators, nil
	}
	if len(s.Labels) != len(d.Estimators) {
		return nil, simerr.InvalidConfig("labels", "design %s takes %d estimator labels, got %d", s.Design, len(d.Estimators), len(s.Labels))
	}
	return s.Labels, nil
}

func (s Spec) scenario() simulation.Scenario {
	return simulation.Scenario{
		Name:         s.Name,
		N:            s.N,
		Replications: s.Replications,
		Seed:         s.Seed,
		Truth:        s.Effect,
		MaxRedraws:   s.MaxRedraws,
	}
}

// Settings are the inference choices shared by every scenario of a run.
type Settings struct {
	CriticalValue inference.CriticalValuer
	Bootstrap     inference.BootstrapConfig
}

// DefaultSettings uses Student-t critical values at 95% and 200 bootstrap
// resamples.
func DefaultSettings() Settings {
	return Settings{
		CriticalValue: inference.StudentT{Level: inference.DefaultLevel},
		Bootstrap:     inference.DefaultBootstrapConfig(),
	}
}

// Outcome is a finished scenario.
type Outcome struct {
	Spec   Spec
	Result *simulation.Result
	// FirstStage is set for designs with an instrumented estimator.
	FirstStage *aggregate.FirstStage
}

// Run simulates one spec.
func Run(ctx context.Context, opts simulation.Options, spec Spec, set Settings) (*Outcome, error) {
	if set.CriticalValue == nil {
		set.CriticalValue = DefaultSettings().CriticalValue
	}
	if spec.Name == "" {
		spec.Name = spec.DefaultName()
	}
	if math.IsNaN(spec.Effect) || math.IsInf(spec.Effect, 0) {
		return nil, simerr.InvalidConfig("effect", "scenario %s: effect must be finite", spec.Name)
	}
	labels, err := spec.EstimatorLabels()
	if err != nil {
		return nil, err
	}
	cv := set.CriticalValue

	out := &Outcome{Spec: spec}
	switch spec.Design {
	case DesignPSM:
		out.Result, err = simulation.Run(ctx, opts, simulation.Experiment[*dgp.CrossSection]{
			Scenario:   spec.scenario(),
			Generator:  dgp.Propensity{Effect: spec.Effect},
			Estimators: []simulation.Estimator[*dgp.CrossSection]{Matching(labels[0], set.Bootstrap, cv)},
		})
	case DesignIV:
		out.Result, err = simulation.Run(ctx, opts, simulation.Experiment[*dgp.CrossSection]{
			Scenario:  spec.scenario(),
			Generator: dgp.Instrument{Strength: spec.Strength, Effect: spec.Effect},
			Estimators: []simulation.Estimator[*dgp.CrossSection]{
				OLS(labels[0], cv),
				TwoSLS(labels[1], cv),
			},
		})
		if err == nil {
			if fs, ok := aggregate.DescribeFirstStage(out.Result.ByEstimator(labels[1])); ok {
				out.FirstStage = &fs
			}
		}
	case DesignDiD:
		out.Result, err = simulation.Run(ctx, opts, simulation.Experiment[*dgp.PanelData]{
			Scenario:  spec.scenario(),
			Generator: dgp.Panel{Effect: spec.Effect, Violation: spec.Violation, PreTrend: spec.PreTrend},
			Estimators: []simulation.Estimator[*dgp.PanelData]{
				DiD(labels[0], estimate.DiDBasic, cv),
				DiD(labels[1], estimate.DiDFixedEffects, cv),
			},
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunAll simulates specs in order. Scenario names must be unique.
func RunAll(ctx context.Context, opts simulation.Options, specs []Spec, set Settings) ([]*Outcome, error) {
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		name := s.Name
		if name == "" {
			name = s.DefaultName()
		}
		if seen[name] {
			return nil, simerr.InvalidConfig("scenarios", "duplicate scenario name %q", name)
		}
		seen[name] = true
	}

	out := make([]*Outcome, 0, len(specs))
	for _, s := range specs {
		o, err := Run(ctx, opts, s, set)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Summaries flattens the summaries of every outcome in run order.
func Summaries(outcomes []*Outcome) []aggregate.Summary {
	var out []aggregate.Summary
	for _, o := range outcomes {
		out = append(out, o.Result.Summaries...)
	}
	return out
}
