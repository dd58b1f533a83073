package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/causalsim/internal/aggregate"
	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/logging"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// Options configures how replications are scheduled and observed. The zero
// value runs on GOMAXPROCS workers with no logging.
type Options struct {
	Workers int
	Logger  *slog.Logger
	Events  *logging.EventLogger
	Metrics *Metrics
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// Run executes every replication of exp and summarizes the results. It
// returns exactly Replications results per estimator or an error; a
// RedrawBudgetError or any non-recoverable estimator error aborts the run and
// cancels the remaining workers.
func Run[D dgp.Dataset](ctx context.Context, opts Options, exp Experiment[D]) (*Result, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	sc := exp.Scenario
	logger := opts.logger().With("scenario", sc.Name)
	logger.Debug("scenario started", "n", sc.N, "replications", sc.Replications, "seed", sc.Seed, "workers", opts.workers())
	start := time.Now()

	slots := make([][]aggregate.Replication, sc.Replications)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range sc.Replications {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reps, err := replicate(gctx, opts, logger, exp, i)
			if err != nil {
				return err
			}
			slots[i] = reps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Scenario:     sc,
		Replications: make([]aggregate.Replication, 0, sc.Replications*len(exp.Estimators)),
	}
	for _, reps := range slots {
		res.Replications = append(res.Replications, reps...)
		if len(reps) > 0 {
			res.Redraws += reps[0].Redraws
		}
	}
	res.Summaries = aggregate.Summarize(res.Replications, sc.Truth)

	logger.Info("scenario complete", "replications", sc.Replications, "redraws", res.Redraws, "elapsed", time.Since(start).Round(time.Millisecond))
	opts.Events.Log("scenario_complete", map[string]any{
		"scenario":     sc.Name,
		"n":            sc.N,
		"replications": sc.Replications,
		"redraws":      res.Redraws,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return res, nil
}

// replicate produces one replication's results, redrawing on recoverable
// failures until the scenario's redraw budget is spent.
func replicate[D dgp.Dataset](ctx context.Context, opts Options, logger *slog.Logger, exp Experiment[D], index int) ([]aggregate.Replication, error) {
	sc := exp.Scenario
	r := dgp.NewRand(DeriveSeed(sc.Seed, index))
	start := time.Now()

	var last error
	for redraws := 0; redraws <= sc.maxRedraws(); redraws++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reps, err := attempt(r, exp, index)
		if err == nil {
			for i := range reps {
				reps[i].Redraws = redraws
			}
			opts.Metrics.recordReplication(sc.Name, time.Since(start))
			logger.Log(ctx, logging.LevelTrace, "replication", "index", index, "redraws", redraws)
			return reps, nil
		}
		if !simerr.Recoverable(err) {
			return nil, fmt.Errorf("scenario %s: replication %d: %w", sc.Name, index, err)
		}

		last = err
		reason := simerr.Reason(err)
		opts.Metrics.recordRedraw(sc.Name, reason)
		logger.Debug("redraw", "index", index, "attempt", redraws+1, "reason", reason, "error", err)
		opts.Events.Log("redraw", map[string]any{
			"scenario":    sc.Name,
			"replication": index,
			"attempt":     redraws + 1,
			"reason":      reason,
			"error":       err.Error(),
		})
	}
	return nil, &simerr.RedrawBudgetError{
		Scenario:    sc.Name,
		Replication: index,
		Redraws:     sc.maxRedraws(),
		Last:        last,
	}
}

// attempt draws one dataset and fits every estimator on it. Any estimator
// failure discards the whole draw so no partial replication is recorded.
func attempt[D dgp.Dataset](r *rand.Rand, exp Experiment[D], index int) ([]aggregate.Replication, error) {
	sc := exp.Scenario
	ds, err := exp.Generator.Draw(r, sc.N)
	if err != nil {
		return nil, err
	}
	if err := ds.Degenerate(); err != nil {
		return nil, err
	}

	reps := make([]aggregate.Replication, 0, len(exp.Estimators))
	for _, est := range exp.Estimators {
		fit, err := est.Fit(r, ds)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", est.Label, err)
		}
		reps = append(reps, aggregate.Replication{
			Scenario:    sc.Name,
			Estimator:   est.Label,
			Index:       index,
			Estimate:    fit.Coef,
			StdErr:      fit.StdErr,
			Lower:       fit.Interval.Lower,
			Upper:       fit.Interval.Upper,
			Covered:     fit.Interval.Contains(sc.Truth),
			FirstStageF: fit.FirstStageF,
		})
	}
	return reps, nil
}
