package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/linalg"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// TwoStageLeastSquares estimates the effect of the endogenous regressor d on
// y with instrument z. The structural design is X = [1, d, controls] and the
// instrument set is Z = [1, controls, z]. The first stage F statistic for z
// is attached to the result.
func TwoStageLeastSquares(y, d []float64, controls [][]float64, z []float64, cv inference.CriticalValuer) (*Estimate, error) {
	n := len(y)
	x := linalg.Design(append([][]float64{linalg.Ones(n), d}, controls...)...)
	zm := linalg.Design(append(append([][]float64{linalg.Ones(n)}, controls...), z)...)
	_, k := x.Dims()
	if n <= k {
		return nil, simerr.Degenerate("2sls: %d rows for %d parameters", n, k)
	}

	// X̂ = Z(Z'Z)⁻¹Z'X
	pi, err := linalg.SolveMatrix(linalg.CrossProduct(zm, zm), linalg.CrossProduct(zm, x), "2sls first stage")
	if err != nil {
		return nil, err
	}
	var xhat mat.Dense
	xhat.Mul(zm, pi)

	inv, err := linalg.Inverse(linalg.CrossProduct(&xhat, x), "2sls X̂'X")
	if err != nil {
		return nil, err
	}
	var xhy, beta mat.VecDense
	xhy.MulVec(xhat.T(), mat.NewVecDense(n, y))
	beta.MulVec(inv, &xhy)

	// Residuals use the structural regressors, not the fitted ones.
	resid := linalg.Residuals(x, y, &beta)
	sigma2 := linalg.SumSquares(resid) / float64(n-k)
	se := math.Sqrt(sigma2 * inv.At(1, 1))

	est, err := Finish(beta.AtVec(1), se, n-k, cv)
	if err != nil {
		return nil, err
	}
	f, err := FirstStageF(d, controls, z)
	if err != nil {
		return nil, err
	}
	est.FirstStageF = f
	return est, nil
}

// FirstStageF is the F statistic for excluding z from the regression of d on
// [1, controls, z]. It returns NaN when the unrestricted residual variance is
// not positive.
func FirstStageF(d []float64, controls [][]float64, z []float64) (float64, error) {
	n := len(d)
	restricted := append([][]float64{linalg.Ones(n)}, controls...)
	full := append(append([][]float64{}, restricted...), z)

	ssrR, err := ssr(linalg.Design(restricted...), d, "first stage restricted")
	if err != nil {
		return 0, err
	}
	ssrF, err := ssr(linalg.Design(full...), d, "first stage full")
	if err != nil {
		return 0, err
	}

	const q = 1
	dof := n - len(full)
	if dof <= 0 {
		return math.NaN(), nil
	}
	denom := ssrF / float64(dof)
	if denom <= 0 {
		return math.NaN(), nil
	}
	return ((ssrR - ssrF) / q) / denom, nil
}

func ssr(x *mat.Dense, y []float64, op string) (float64, error) {
	beta, err := linalg.SolveNormal(x, y)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return linalg.SumSquares(linalg.Residuals(x, y, beta)), nil
}
