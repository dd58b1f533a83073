package simulation_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/estimate"
	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/simerr"
	"github.com/nvandessel/causalsim/internal/simulation"
)

var cv = inference.StudentT{Level: 0.95}

func ivExperiment(strength float64, n, reps int, seed uint64) simulation.Experiment[*dgp.CrossSection] {
	return simulation.Experiment[*dgp.CrossSection]{
		Scenario: simulation.Scenario{
			Name:         "iv",
			N:            n,
			Replications: reps,
			Seed:         seed,
			Truth:        2,
		},
		Generator: dgp.Instrument{Strength: strength, Effect: 2},
		Estimators: []simulation.Estimator[*dgp.CrossSection]{
			experiment.OLS("ols", cv),
			experiment.TwoSLS("2sls", cv),
		},
	}
}

// flaky is a generator whose draws are degenerate (a single treatment arm)
// with probability p.
type flaky struct{ p float64 }

func (flaky) Name() string       { return "flaky" }
func (flaky) Truth() float64     { return 4 }
func (flaky) MinSampleSize() int { return 4 }
func (f flaky) Draw(r *rand.Rand, n int) (*dgp.CrossSection, error) {
	ds, err := dgp.Propensity{Effect: 4}.Draw(r, n)
	if err != nil {
		return nil, err
	}
	if r.Float64() < f.p {
		for i := range ds.Treatment {
			ds.Treatment[i] = 1
		}
	}
	return ds, nil
}

func TestRunIdenticalAcrossWorkerCounts(t *testing.T) {
	exp := ivExperiment(0.3, 80, 60, 99)

	var runs []*simulation.Result
	for _, workers := range []int{1, 3, 16} {
		res, err := simulation.Run(context.Background(), simulation.Options{Workers: workers}, exp)
		require.NoError(t, err)
		runs = append(runs, res)
	}
	for i := 1; i < len(runs); i++ {
		if diff := cmp.Diff(runs[0], runs[i], cmpopts.EquateNaNs()); diff != "" {
			t.Fatalf("results differ between worker counts (-first +other):\n%s", diff)
		}
	}

	simulation.AssertReplicationCount(t, runs[0], "ols", "2sls")
	simulation.AssertIntervalsConsistent(t, runs[0])
}

func TestRunSeedChangesResults(t *testing.T) {
	a, err := simulation.Run(context.Background(), simulation.Options{}, ivExperiment(0.3, 50, 10, 1))
	require.NoError(t, err)
	b, err := simulation.Run(context.Background(), simulation.Options{}, ivExperiment(0.3, 50, 10, 2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Replications[0].Estimate, b.Replications[0].Estimate)
}

func TestRunRedrawsDegenerateDraws(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := simulation.NewMetrics(reg)

	exp := simulation.Experiment[*dgp.CrossSection]{
		Scenario:   simulation.Scenario{Name: "flaky", N: 40, Replications: 30, Seed: 5, Truth: 4},
		Generator:  flaky{p: 0.5},
		Estimators: []simulation.Estimator[*dgp.CrossSection]{experiment.OLS("ols", cv)},
	}
	res, err := simulation.Run(context.Background(), simulation.Options{Workers: 4, Metrics: metrics}, exp)
	require.NoError(t, err)

	simulation.AssertReplicationCount(t, res, "ols")
	assert.Greater(t, res.Redraws, 0)

	var perRep int
	for _, rep := range res.Replications {
		perRep += rep.Redraws
	}
	assert.Equal(t, res.Redraws, perRep)
	assert.Equal(t, float64(res.Redraws), testutil.ToFloat64(metrics.RedrawsTotal.WithLabelValues("flaky", "degenerate")))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.ReplicationsTotal.WithLabelValues("flaky")))

	snap, err := simulation.Snapshot(reg)
	require.NoError(t, err)
	assert.Equal(t, 30.0, snap["causalsim_replications_total"])
	assert.Equal(t, float64(res.Redraws), snap["causalsim_redraws_total"])
	assert.Equal(t, 30.0, snap["causalsim_replication_seconds_count"])
}

func TestRunRedrawBudgetExhausted(t *testing.T) {
	exp := simulation.Experiment[*dgp.CrossSection]{
		Scenario:   simulation.Scenario{Name: "hopeless", N: 10, Replications: 5, Seed: 1, MaxRedraws: 3},
		Generator:  flaky{p: 1},
		Estimators: []simulation.Estimator[*dgp.CrossSection]{experiment.OLS("ols", cv)},
	}
	_, err := simulation.Run(context.Background(), simulation.Options{Workers: 2}, exp)

	var be *simerr.RedrawBudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "hopeless", be.Scenario)
	assert.Equal(t, 3, be.Redraws)
	var de *simerr.DegenerateSampleError
	assert.ErrorAs(t, err, &de, "the last failure is kept")
	assert.False(t, simerr.Recoverable(be), "an exhausted budget is fatal")
}

func TestRunEstimatorFailureRedrawsWholeReplication(t *testing.T) {
	// The second estimator fails on every other call; the first estimator's
	// output for the discarded draw must not leak into the results.
	calls := make(chan struct{}, 1000)
	failing := simulation.Estimator[*dgp.CrossSection]{
		Label: "sometimes",
		Fit: func(r *rand.Rand, ds *dgp.CrossSection) (*estimate.Estimate, error) {
			calls <- struct{}{}
			if r.IntN(2) == 0 {
				return nil, &simerr.LinearAlgebraError{Op: "test"}
			}
			return estimate.Finish(1, 1, 10, cv)
		},
	}
	exp := simulation.Experiment[*dgp.CrossSection]{
		Scenario:   simulation.Scenario{Name: "partial", N: 60, Replications: 20, Seed: 3, Truth: 4},
		Generator:  dgp.Propensity{Effect: 4},
		Estimators: []simulation.Estimator[*dgp.CrossSection]{experiment.OLS("ols", cv), failing},
	}
	res, err := simulation.Run(context.Background(), simulation.Options{Workers: 1}, exp)
	require.NoError(t, err)

	simulation.AssertReplicationCount(t, res, "ols", "sometimes")
	assert.Len(t, res.Replications, 40)
	assert.Equal(t, 20+res.Redraws, len(calls))
}

func TestRunFatalErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	exp := simulation.Experiment[*dgp.CrossSection]{
		Scenario: simulation.Scenario{Name: "fatal", N: 30, Replications: 200, Seed: 3, Truth: 4},
		Generator: dgp.Propensity{Effect: 4},
		Estimators: []simulation.Estimator[*dgp.CrossSection]{{
			Label: "broken",
			Fit: func(*rand.Rand, *dgp.CrossSection) (*estimate.Estimate, error) {
				return nil, boom
			},
		}},
	}
	_, err := simulation.Run(context.Background(), simulation.Options{Workers: 4}, exp)
	assert.ErrorIs(t, err, boom)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := simulation.Run(ctx, simulation.Options{}, ivExperiment(0.3, 50, 10, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*simulation.Experiment[*dgp.CrossSection])
	}{
		{"missing name", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Scenario.Name = "" }},
		{"n below minimum", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Scenario.N = 3 }},
		{"no replications", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Scenario.Replications = 0 }},
		{"too many replications", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Scenario.Replications = 1 << 62 }},
		{"negative redraws", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Scenario.MaxRedraws = -1 }},
		{"no estimators", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Estimators = nil }},
		{"duplicate label", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Estimators[1].Label = "ols" }},
		{"no generator", func(e *simulation.Experiment[*dgp.CrossSection]) { e.Generator = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := ivExperiment(0.3, 50, 10, 1)
			tt.mutate(&exp)
			_, err := simulation.Run(context.Background(), simulation.Options{}, exp)
			var ce *simerr.InvalidConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestDeriveSeed(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := range 1000 {
		s := simulation.DeriveSeed(12345, i)
		assert.False(t, seen[s], "seed collision at %d", i)
		seen[s] = true
	}
	assert.Equal(t, simulation.DeriveSeed(7, 3), simulation.DeriveSeed(7, 3))
	assert.NotEqual(t, simulation.DeriveSeed(7, 3), simulation.DeriveSeed(8, 3))
}

func TestNilMetricsAreSafe(t *testing.T) {
	_, err := simulation.Run(context.Background(), simulation.Options{Metrics: nil}, ivExperiment(0.3, 50, 5, 1))
	assert.NoError(t, err)
}
