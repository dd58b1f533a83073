package experiment

import (
	"math/rand/v2"

	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/estimate"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/linalg"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// Matching is propensity score matching: a logit propensity model, one
// nearest neighbour per treated unit and a bootstrap standard error. The
// interval uses the normal critical value.
func Matching(label string, boot inference.BootstrapConfig, cv inference.CriticalValuer) simulation.Estimator[*dgp.CrossSection] {
	return simulation.Estimator[*dgp.CrossSection]{
		Label: label,
		Fit: func(r *rand.Rand, ds *dgp.CrossSection) (*estimate.Estimate, error) {
			att, err := matchedATT(ds)
			if err != nil {
				return nil, err
			}
			res, err := inference.BootstrapSE(r, ds.Len(), boot, func(idx []int) (float64, error) {
				sub := ds.Resample(idx)
				if err := sub.Degenerate(); err != nil {
					return 0, err
				}
				return matchedATT(sub)
			})
			if err != nil {
				return nil, err
			}
			return estimate.Finish(att, res.StdErr, 0, cv)
		},
	}
}

func matchedATT(ds *dgp.CrossSection) (float64, error) {
	cols := append([][]float64{linalg.Ones(ds.Len())}, ds.Covariates...)
	fit, err := estimate.FitLogit(linalg.Design(cols...), ds.Treatment)
	if err != nil {
		return 0, err
	}
	m, err := estimate.MatchNearest(ds.Outcome, ds.Treatment, fit.Propensity)
	if err != nil {
		return 0, err
	}
	return m.ATT, nil
}

// OLS regresses the outcome on the treatment and every covariate.
func OLS(label string, cv inference.CriticalValuer) simulation.Estimator[*dgp.CrossSection] {
	return simulation.Estimator[*dgp.CrossSection]{
		Label: label,
		Fit: func(_ *rand.Rand, ds *dgp.CrossSection) (*estimate.Estimate, error) {
			return estimate.OLS(ds.Outcome, ds.Treatment, ds.Covariates, cv)
		},
	}
}

// TwoSLS instruments the treatment with the dataset's instrument, using the
// covariates as exogenous controls.
func TwoSLS(label string, cv inference.CriticalValuer) simulation.Estimator[*dgp.CrossSection] {
	return simulation.Estimator[*dgp.CrossSection]{
		Label: label,
		Fit: func(_ *rand.Rand, ds *dgp.CrossSection) (*estimate.Estimate, error) {
			return estimate.TwoStageLeastSquares(ds.Outcome, ds.Treatment, ds.Covariates, ds.Instrument, cv)
		},
	}
}

// DiD fits a difference-in-differences regression with unit-clustered
// standard errors.
func DiD(label string, spec estimate.DiDSpec, cv inference.CriticalValuer) simulation.Estimator[*dgp.PanelData] {
	return simulation.Estimator[*dgp.PanelData]{
		Label: label,
		Fit: func(_ *rand.Rand, p *dgp.PanelData) (*estimate.Estimate, error) {
			return estimate.DiD(p, spec, cv)
		},
	}
}
