package inference

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/causalsim/internal/simerr"
)

// BootstrapConfig controls bootstrap resampling.
type BootstrapConfig struct {
	// Reps is the target number of usable resamples.
	Reps int
	// RetryFactor caps discarded resamples at RetryFactor × Reps.
	RetryFactor int
}

// DefaultBootstrapConfig returns 200 resamples with a 10× retry budget.
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{Reps: 200, RetryFactor: 10}
}

// Replicate evaluates the estimator on the resample given by idx (row
// indices drawn with replacement). It returns a simerr.DegenerateSampleError
// when the resample is unusable, e.g. it lacks a treatment arm. idx is reused
// between calls and must not be retained.
type Replicate func(idx []int) (float64, error)

// BootstrapResult carries the standard error and the bookkeeping behind it.
type BootstrapResult struct {
	StdErr    float64
	Usable    int
	Discarded int
}

// BootstrapSE resamples n rows with replacement until cfg.Reps usable
// estimates are collected or cfg.RetryFactor×cfg.Reps resamples have been
// discarded, and returns the sample standard deviation of the estimates.
//
// Degenerate resamples are discarded and retried. Any other estimator error
// is returned unchanged. Fewer than two usable resamples is a
// simerr.BootstrapFailureError.
func BootstrapSE(r *rand.Rand, n int, cfg BootstrapConfig, replicate Replicate) (BootstrapResult, error) {
	if cfg.Reps <= 0 {
		cfg.Reps = DefaultBootstrapConfig().Reps
	}
	if cfg.RetryFactor <= 0 {
		cfg.RetryFactor = DefaultBootstrapConfig().RetryFactor
	}
	maxDiscards := cfg.Reps * cfg.RetryFactor

	estimates := make([]float64, 0, cfg.Reps)
	idx := make([]int, n)
	discarded := 0
	for len(estimates) < cfg.Reps && discarded < maxDiscards {
		for i := range idx {
			idx[i] = r.IntN(n)
		}
		est, err := replicate(idx)
		if err != nil {
			var de *simerr.DegenerateSampleError
			if errors.As(err, &de) {
				discarded++
				continue
			}
			return BootstrapResult{}, err
		}
		estimates = append(estimates, est)
	}

	if len(estimates) < 2 {
		return BootstrapResult{}, &simerr.BootstrapFailureError{Usable: len(estimates), Attempts: discarded}
	}
	return BootstrapResult{
		StdErr:    stat.StdDev(estimates, nil),
		Usable:    len(estimates),
		Discarded: discarded,
	}, nil
}
