package estimate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/causalsim/internal/dgp"
	"github.com/nvandessel/causalsim/internal/linalg"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// Newton-Raphson settings for FitLogit.
const (
	LogitTolerance     = 1e-6
	LogitMaxIterations = 50
	logitWeightFloor   = 1e-6
	logitRidge         = 1e-6
	propensityClamp    = 1e-12
)

// LogitFit is a fitted logistic regression.
type LogitFit struct {
	Coef       []float64
	Propensity []float64
	Iterations int
	// Converged is false when the iteration cap was reached first. The last
	// iterate is still returned.
	Converged bool
}

// FitLogit fits P(d=1|x) = logistic(xβ) by Newton-Raphson. x must already
// contain the intercept column.
func FitLogit(x *mat.Dense, d []float64) (*LogitFit, error) {
	n, k := x.Dims()
	if n != len(d) {
		return nil, simerr.Degenerate("logit: %d rows but %d outcomes", n, len(d))
	}
	if !binaryVaries(d) {
		return nil, simerr.Degenerate("logit: treatment has a single class")
	}

	beta := mat.NewVecDense(k, nil)
	p := make([]float64, n)
	resid := mat.NewVecDense(n, nil)
	wx := mat.NewDense(n, k, nil)

	fit := &LogitFit{}
	for fit.Iterations < LogitMaxIterations {
		fit.Iterations++
		var eta mat.VecDense
		eta.MulVec(x, beta)
		for i := 0; i < n; i++ {
			p[i] = dgp.Logistic(eta.AtVec(i))
			resid.SetVec(i, d[i]-p[i])
			w := max(p[i]*(1-p[i]), logitWeightFloor)
			for j := 0; j < k; j++ {
				wx.Set(i, j, w*x.At(i, j))
			}
		}

		var grad mat.VecDense
		grad.MulVec(x.T(), resid)
		hess := linalg.CrossProduct(x, wx)
		for j := 0; j < k; j++ {
			hess.Set(j, j, hess.At(j, j)+logitRidge)
		}

		delta, err := linalg.Solve(hess, &grad, "logit hessian")
		if err != nil {
			return nil, err
		}
		beta.AddVec(beta, delta)
		if linalg.InfNorm(delta.RawVector().Data) < LogitTolerance {
			fit.Converged = true
			break
		}
	}

	var eta mat.VecDense
	eta.MulVec(x, beta)
	fit.Propensity = make([]float64, n)
	for i := range fit.Propensity {
		fit.Propensity[i] = min(max(dgp.Logistic(eta.AtVec(i)), propensityClamp), 1-propensityClamp)
	}
	fit.Coef = append([]float64(nil), beta.RawVector().Data...)
	return fit, nil
}

func binaryVaries(d []float64) bool {
	var ones, zeros bool
	for _, v := range d {
		if v == 1 {
			ones = true
		} else {
			zeros = true
		}
		if ones && zeros {
			return true
		}
	}
	return false
}
