package estimate

import (
	"math"

	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/linalg"
)

// OLS regresses y on [1, treat, controls...] and returns the treat
// coefficient with a homoskedastic standard error and a df = N−k interval.
func OLS(y, treat []float64, controls [][]float64, cv inference.CriticalValuer) (*Estimate, error) {
	cols := append([][]float64{linalg.Ones(len(y)), treat}, controls...)
	fit, err := fitLinear(linalg.Design(cols...), y, "ols")
	if err != nil {
		return nil, err
	}
	se := math.Sqrt(fit.sigma2() * fit.xtxInv.At(1, 1))
	return Finish(fit.beta.AtVec(1), se, fit.df(), cv)
}
