// Package simulation runs Monte Carlo replications of a causal design and
// reduces them to per-estimator summaries.
//
// A replication draws one dataset from the design's generator, fits every
// estimator on it and records the estimate, standard error and interval
// coverage against the known truth. Draws that turn out degenerate, or on
// which any estimator fails numerically, are discarded and redrawn from the
// same random stream, up to Scenario.MaxRedraws times.
//
// Replications run concurrently on a bounded worker pool. Each replication
// owns a random stream seeded from (scenario seed, index), and its results
// are stored by index, so a run's output does not depend on the worker
// count.
//
// Usage:
//
//	exp := simulation.Experiment[*dgp.CrossSection]{
//	    Scenario:   simulation.Scenario{Name: "psm", N: 100, Replications: 1000, Seed: 12345, Truth: 4},
//	    Generator:  dgp.Propensity{Effect: 4},
//	    Estimators: []simulation.Estimator[*dgp.CrossSection]{...},
//	}
//	res, err := simulation.Run(ctx, simulation.Options{Workers: 8}, exp)
package simulation
