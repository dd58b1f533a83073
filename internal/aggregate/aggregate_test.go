package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rep(scenario, estimator string, est, lower, upper, truth float64) Replication {
	return Replication{
		Scenario:    scenario,
		Estimator:   estimator,
		Estimate:    est,
		StdErr:      (upper - lower) / 4,
		Lower:       lower,
		Upper:       upper,
		Covered:     lower <= truth && truth <= upper,
		FirstStageF: math.NaN(),
	}
}

func TestSummarize(t *testing.T) {
	results := []Replication{
		rep("s", "ols", 3, 2, 4, 2),
		rep("s", "ols", 1, 0.5, 1.5, 2),
		rep("s", "ols", 2, 1, 3, 2),
		rep("s", "ols", 4, 3.5, 4.5, 2),
	}
	got := Summarize(results, 2)
	require.Len(t, got, 1)
	s := got[0]

	assert.Equal(t, "s", s.Scenario)
	assert.Equal(t, "ols", s.Estimator)
	assert.Equal(t, 4, s.Replications)
	assert.InDelta(t, 2.5, s.MeanEstimate, 1e-12)
	assert.InDelta(t, 0.5, s.Bias, 1e-12)
	// Deviations from the mean: 0.5, -1.5, -0.5, 1.5 → 5/3.
	assert.InDelta(t, 5.0/3.0, s.Variance, 1e-12)
	// Deviations from the truth: 1, -1, 0, 2 → 6/4.
	assert.InDelta(t, 1.5, s.MSE, 1e-12)
	assert.InDelta(t, 0.5, s.Coverage, 1e-12)
	assert.InDelta(t, 0.375, s.MeanStdErr, 1e-12)
	assert.True(t, math.IsNaN(s.MeanFirstStageF))
	assert.InDelta(t, 0, s.BiasVarianceGap(), 1e-12)
}

func TestSummarizeGroupsInFirstSeenOrder(t *testing.T) {
	results := []Replication{
		rep("b", "x", 1, 0, 2, 1),
		rep("a", "x", 1, 0, 2, 1),
		rep("b", "y", 1, 0, 2, 1),
		rep("b", "x", 1, 0, 2, 1),
	}
	got := Summarize(results, 1)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b/x", "a/x", "b/y"}, []string{
		got[0].Scenario + "/" + got[0].Estimator,
		got[1].Scenario + "/" + got[1].Estimator,
		got[2].Scenario + "/" + got[2].Estimator,
	})
	assert.Equal(t, 2, got[0].Replications)
	assert.Equal(t, 0.0, got[0].Variance)
	assert.True(t, math.IsNaN(got[1].Variance), "a single replication has no sample variance")
}

func TestSummarizeMeanFirstStage(t *testing.T) {
	results := []Replication{
		{Scenario: "iv", Estimator: "2sls", FirstStageF: 10},
		{Scenario: "iv", Estimator: "2sls", FirstStageF: 30},
		{Scenario: "iv", Estimator: "2sls", FirstStageF: math.NaN()},
	}
	got := Summarize(results, 0)
	require.Len(t, got, 1)
	assert.InDelta(t, 20, got[0].MeanFirstStageF, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil, 1))
}

func TestDescribeFirstStage(t *testing.T) {
	var results []Replication
	for _, f := range []float64{5, 1, 4, 2, 3} {
		results = append(results, Replication{FirstStageF: f})
	}
	results = append(results, Replication{FirstStageF: math.NaN()})

	d, ok := DescribeFirstStage(results)
	require.True(t, ok)
	assert.Equal(t, 5, d.Count)
	assert.InDelta(t, 3, d.Mean, 1e-12)
	assert.InDelta(t, 3, d.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), d.StdDev, 1e-12)
	assert.InDelta(t, 1.2, d.P5, 1e-12)
	assert.InDelta(t, 4.8, d.P95, 1e-12)

	_, ok = DescribeFirstStage([]Replication{{FirstStageF: math.NaN()}})
	assert.False(t, ok)
}

func TestQuantileEvenCount(t *testing.T) {
	assert.InDelta(t, 2.5, quantile([]float64{1, 2, 3, 4}, 0.5), 1e-12)
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.95))
}
