package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/causalsim/internal/aggregate"
)

// AssertCoverageNear asserts that a summary's coverage lies within z binomial
// standard errors of nominal, given its replication count.
func AssertCoverageNear(t *testing.T, s aggregate.Summary, nominal, z float64) {
	t.Helper()
	if s.Replications == 0 {
		t.Fatalf("AssertCoverageNear: %s/%s has no replications", s.Scenario, s.Estimator)
	}
	se := math.Sqrt(nominal * (1 - nominal) / float64(s.Replications))
	lo, hi := nominal-z*se, nominal+z*se
	if s.Coverage < lo || s.Coverage > hi {
		t.Errorf("AssertCoverageNear: %s/%s coverage %.4f not in [%.4f, %.4f] (R=%d)",
			s.Scenario, s.Estimator, s.Coverage, lo, hi, s.Replications)
	}
}

// AssertSummarySane asserts the basic invariants every summary satisfies:
// finite bias, non-negative variance, MSE at least the (R−1)/R-scaled
// variance, and coverage in [0, 1].
func AssertSummarySane(t *testing.T, s aggregate.Summary) {
	t.Helper()
	name := s.Scenario + "/" + s.Estimator
	if math.IsNaN(s.Bias) || math.IsInf(s.Bias, 0) {
		t.Errorf("AssertSummarySane: %s bias %v is not finite", name, s.Bias)
	}
	if !(s.Variance >= 0) {
		t.Errorf("AssertSummarySane: %s variance %v is negative or NaN", name, s.Variance)
	}
	r := float64(s.Replications)
	if s.MSE < s.Variance*(r-1)/r-1e-12 {
		t.Errorf("AssertSummarySane: %s MSE %.6f below scaled variance %.6f", name, s.MSE, s.Variance*(r-1)/r)
	}
	if s.Coverage < 0 || s.Coverage > 1 {
		t.Errorf("AssertSummarySane: %s coverage %.4f outside [0, 1]", name, s.Coverage)
	}
}

// AssertMSEDecomposition asserts MSE = Bias² + Variance·(R−1)/R within tol.
func AssertMSEDecomposition(t *testing.T, s aggregate.Summary, tol float64) {
	t.Helper()
	if gap := math.Abs(s.BiasVarianceGap()); gap > tol {
		t.Errorf("AssertMSEDecomposition: %s/%s gap %.3g > %.3g", s.Scenario, s.Estimator, gap, tol)
	}
}

// AssertReplicationCount asserts that every estimator produced exactly the
// scenario's replication count, with indices 0..R−1 in order.
func AssertReplicationCount(t *testing.T, res *Result, labels ...string) {
	t.Helper()
	for _, label := range labels {
		reps := res.ByEstimator(label)
		if len(reps) != res.Scenario.Replications {
			t.Errorf("AssertReplicationCount: %s has %d replications, want %d", label, len(reps), res.Scenario.Replications)
			continue
		}
		for i, rep := range reps {
			if rep.Index != i {
				t.Errorf("AssertReplicationCount: %s replication %d has index %d", label, i, rep.Index)
				break
			}
		}
	}
}

// AssertIntervalsConsistent asserts Lower ≤ Upper for every replication and
// that Covered agrees with the scenario truth.
func AssertIntervalsConsistent(t *testing.T, res *Result) {
	t.Helper()
	truth := res.Scenario.Truth
	for _, rep := range res.Replications {
		if rep.Lower > rep.Upper {
			t.Errorf("AssertIntervalsConsistent: %s #%d interval [%v, %v] is inverted", rep.Estimator, rep.Index, rep.Lower, rep.Upper)
		}
		want := rep.Lower <= truth && truth <= rep.Upper
		if rep.Covered != want {
			t.Errorf("AssertIntervalsConsistent: %s #%d covered=%v, want %v", rep.Estimator, rep.Index, rep.Covered, want)
		}
	}
}
