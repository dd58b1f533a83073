// Package aggregate reduces per-replication results into scenario summaries.
package aggregate

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Replication is one estimator's output for one replication. It is written
// once by the orchestrator and never mutated.
type Replication struct {
	Scenario  string  `json:"scenario"`
	Estimator string  `json:"estimator"`
	Index     int     `json:"index"`
	Estimate  float64 `json:"estimate"`
	StdErr    float64 `json:"std_err"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Covered   bool    `json:"covered"`
	// FirstStageF is NaN for estimators without a first stage.
	FirstStageF float64 `json:"-"`
	// Redraws counts the discarded draws that preceded this replication.
	Redraws int `json:"redraws"`
}

// Summary is the reduction of all replications sharing a scenario and an
// estimator.
type Summary struct {
	Scenario     string
	Estimator    string
	Truth        float64
	Replications int
	MeanEstimate float64
	Bias         float64
	// Variance is the sample variance of the estimates (denominator R−1).
	Variance float64
	// MSE is the mean squared deviation from the truth. It equals
	// Bias² + Variance·(R−1)/R.
	MSE        float64
	Coverage   float64
	MeanStdErr float64
	// MeanFirstStageF is NaN when no replication reported a first stage.
	MeanFirstStageF float64
	Redraws         int
}

type groupKey struct {
	scenario  string
	estimator string
}

// Summarize groups results by (scenario, estimator), in first-seen order,
// and reduces each group against truth.
func Summarize(results []Replication, truth float64) []Summary {
	groups := make(map[groupKey][]Replication)
	var order []groupKey
	for _, r := range results {
		k := groupKey{r.Scenario, r.Estimator}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		out = append(out, summarizeGroup(k, groups[k], truth))
	}
	return out
}

func summarizeGroup(k groupKey, rs []Replication, truth float64) Summary {
	n := len(rs)
	estimates := make([]float64, n)
	ses := make([]float64, n)
	var fs []float64
	var covered, redraws int
	var sqdev float64
	for i, r := range rs {
		estimates[i] = r.Estimate
		ses[i] = r.StdErr
		d := r.Estimate - truth
		sqdev += d * d
		if r.Covered {
			covered++
		}
		if !math.IsNaN(r.FirstStageF) {
			fs = append(fs, r.FirstStageF)
		}
		redraws += r.Redraws
	}

	s := Summary{
		Scenario:        k.scenario,
		Estimator:       k.estimator,
		Truth:           truth,
		Replications:    n,
		Variance:        math.NaN(),
		MeanFirstStageF: math.NaN(),
		Redraws:         redraws,
	}
	if n == 0 {
		s.MeanEstimate, s.Bias, s.MSE, s.Coverage, s.MeanStdErr = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.MeanEstimate = stat.Mean(estimates, nil)
	s.Bias = s.MeanEstimate - truth
	if n > 1 {
		s.Variance = stat.Variance(estimates, nil)
	}
	s.MSE = sqdev / float64(n)
	s.Coverage = float64(covered) / float64(n)
	s.MeanStdErr = stat.Mean(ses, nil)
	if len(fs) > 0 {
		s.MeanFirstStageF = stat.Mean(fs, nil)
	}
	return s
}

// FirstStage describes the sampling distribution of the first-stage F.
type FirstStage struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}

// DescribeFirstStage summarizes the finite first-stage F values in results.
// The boolean is false when none are present.
func DescribeFirstStage(results []Replication) (FirstStage, bool) {
	var fs []float64
	for _, r := range results {
		if !math.IsNaN(r.FirstStageF) && !math.IsInf(r.FirstStageF, 0) {
			fs = append(fs, r.FirstStageF)
		}
	}
	if len(fs) == 0 {
		return FirstStage{}, false
	}
	slices.Sort(fs)
	d := FirstStage{
		Count:  len(fs),
		Mean:   stat.Mean(fs, nil),
		Median: quantile(fs, 0.5),
		StdDev: math.NaN(),
		P5:     quantile(fs, 0.05),
		P95:    quantile(fs, 0.95),
	}
	if len(fs) > 1 {
		d.StdDev = stat.StdDev(fs, nil)
	}
	return d, true
}

// quantile interpolates linearly between order statistics at rank (n−1)p.
// sorted must be ascending.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// BiasVarianceGap returns MSE − (Bias² + Variance·(R−1)/R), which is zero up
// to rounding.
func (s Summary) BiasVarianceGap() float64 {
	if s.Replications < 2 {
		return 0
	}
	r := float64(s.Replications)
	return s.MSE - (s.Bias*s.Bias + s.Variance*(r-1)/r)
}
