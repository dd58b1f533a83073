// Package estimate implements the point estimators and their analytic
// variance procedures: a Newton-Raphson logit, nearest-neighbour propensity
// matching, OLS, two-stage least squares and difference-in-differences with
// cluster-robust standard errors.
package estimate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/linalg"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// Estimate is a fitted causal parameter with its inference.
type Estimate struct {
	Coef     float64
	StdErr   float64
	Interval inference.Interval
	// DF is the degrees of freedom behind the critical value; 0 means normal.
	DF int
	// FirstStageF is NaN unless the estimator has a first stage.
	FirstStageF float64
}

// Finish validates coef and se and builds the confidence interval. A
// non-finite or negative result is reported as degenerate so the draw can be
// replaced.
func Finish(coef, se float64, df int, cv inference.CriticalValuer) (*Estimate, error) {
	if math.IsNaN(coef) || math.IsInf(coef, 0) {
		return nil, simerr.Degenerate("non-finite estimate %v", coef)
	}
	if math.IsNaN(se) || math.IsInf(se, 0) || se < 0 {
		return nil, simerr.Degenerate("invalid standard error %v", se)
	}
	return &Estimate{
		Coef:        coef,
		StdErr:      se,
		Interval:    inference.NewInterval(coef, se, cv.CriticalValue(df)),
		DF:          df,
		FirstStageF: math.NaN(),
	}, nil
}

// linearFit is an OLS fit kept only long enough to compute variances.
type linearFit struct {
	x      *mat.Dense
	beta   *mat.VecDense
	resid  []float64
	xtxInv *mat.Dense
}

func fitLinear(x *mat.Dense, y []float64, op string) (*linearFit, error) {
	n, k := x.Dims()
	if n <= k {
		return nil, simerr.Degenerate("%s: %d rows for %d parameters", op, n, k)
	}
	xtxInv, err := linalg.Inverse(linalg.CrossProduct(x, x), op)
	if err != nil {
		return nil, err
	}
	var xty, beta mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))
	beta.MulVec(xtxInv, &xty)
	return &linearFit{
		x:      x,
		beta:   &beta,
		resid:  linalg.Residuals(x, y, &beta),
		xtxInv: xtxInv,
	}, nil
}

// sigma2 is the residual variance u'u/(n−k).
func (f *linearFit) sigma2() float64 {
	n, k := f.x.Dims()
	return linalg.SumSquares(f.resid) / float64(n-k)
}

func (f *linearFit) df() int {
	n, k := f.x.Dims()
	return n - k
}
