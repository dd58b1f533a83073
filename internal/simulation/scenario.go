package simulation

import (
	"math/rand/v2"

	"github.com/nvandessel/causalsim/internal/aggregate"
	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/estimate"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// DefaultMaxRedraws caps redraws per replication when a scenario leaves
// MaxRedraws unset.
const DefaultMaxRedraws = 1000

// MaxReplications bounds the replications of a single scenario.
const MaxReplications = 1_000_000

// Scenario is the immutable description of one simulation cell.
type Scenario struct {
	Name         string
	N            int
	Replications int
	Seed         uint64
	Truth        float64
	// MaxRedraws bounds discarded draws per replication; 0 means
	// DefaultMaxRedraws.
	MaxRedraws int
}

func (s Scenario) maxRedraws() int {
	if s.MaxRedraws <= 0 {
		return DefaultMaxRedraws
	}
	return s.MaxRedraws
}

// Validate checks the scenario against the generator's smallest workable N.
func (s Scenario) Validate(minN int) error {
	switch {
	case s.Name == "":
		return simerr.InvalidConfig("name", "scenario name is required")
	case s.N < minN:
		return simerr.InvalidConfig("n", "scenario %s: sample size %d is below the minimum %d", s.Name, s.N, minN)
	case s.Replications < 1:
		return simerr.InvalidConfig("replications", "scenario %s: need at least one replication, got %d", s.Name, s.Replications)
	case s.Replications > MaxReplications:
		return simerr.InvalidConfig("replications", "scenario %s: %d replications exceeds the maximum of %d", s.Name, s.Replications, MaxReplications)
	case s.MaxRedraws < 0:
		return simerr.InvalidConfig("max_redraws", "scenario %s: must not be negative, got %d", s.Name, s.MaxRedraws)
	}
	return nil
}

// FitFunc fits one estimator on a dataset. r is the replication's random
// stream, used by resampling-based standard errors.
type FitFunc[D dgp.Dataset] func(r *rand.Rand, ds D) (*estimate.Estimate, error)

// Estimator is a labelled estimator of the scenario's truth.
type Estimator[D dgp.Dataset] struct {
	Label string
	Fit   FitFunc[D]
}

// Experiment pairs a scenario with a generator and the estimators compared
// on each draw.
type Experiment[D dgp.Dataset] struct {
	Scenario   Scenario
	Generator  dgp.Generator[D]
	Estimators []Estimator[D]
}

// Validate checks the scenario and the estimator set.
func (e Experiment[D]) Validate() error {
	if e.Generator == nil {
		return simerr.InvalidConfig("design", "scenario %s has no generator", e.Scenario.Name)
	}
	if err := e.Scenario.Validate(e.Generator.MinSampleSize()); err != nil {
		return err
	}
	if len(e.Estimators) == 0 {
		return simerr.InvalidConfig("estimators", "scenario %s has no estimators", e.Scenario.Name)
	}
	seen := make(map[string]bool, len(e.Estimators))
	for _, est := range e.Estimators {
		if est.Label == "" || est.Fit == nil {
			return simerr.InvalidConfig("estimators", "scenario %s: estimator needs a label and a fit function", e.Scenario.Name)
		}
		if seen[est.Label] {
			return simerr.InvalidConfig("estimators", "scenario %s: duplicate estimator label %q", e.Scenario.Name, est.Label)
		}
		seen[est.Label] = true
	}
	return nil
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario Scenario
	// Replications holds R results per estimator, ordered by replication
	// index and then by estimator.
	Replications []aggregate.Replication
	Summaries    []aggregate.Summary
	// Redraws is the total number of discarded draws.
	Redraws int
}

// ByEstimator returns the replications of one estimator in index order.
func (r *Result) ByEstimator(label string) []aggregate.Replication {
	var out []aggregate.Replication
	for _, rep := range r.Replications {
		if rep.Estimator == label {
			out = append(out, rep)
		}
	}
	return out
}

// Summary returns the summary for label.
func (r *Result) Summary(label string) (aggregate.Summary, bool) {
	for _, s := range r.Summaries {
		if s.Estimator == label {
			return s, true
		}
	}
	return aggregate.Summary{}, false
}
