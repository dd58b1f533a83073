// Package linalg provides the small set of dense linear algebra helpers the
// estimators need: design matrices, normal-equation solves, inverses and
// residuals. Singular systems are reported as simerr.LinearAlgebraError.
package linalg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/causalsim/internal/simerr"
)

// Ones returns a length-n column of ones, used as the intercept.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Design builds an n×k matrix whose j-th column is cols[j].
// All columns must have the same length.
func Design(cols ...[]float64) *mat.Dense {
	if len(cols) == 0 {
		return nil
	}
	n, k := len(cols[0]), len(cols)
	data := make([]float64, n*k)
	for j, col := range cols {
		if len(col) != n {
			panic("linalg: ragged design columns")
		}
		for i, v := range col {
			data[i*k+j] = v
		}
	}
	return mat.NewDense(n, k, data)
}

// CrossProduct returns a'b.
func CrossProduct(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a.T(), b)
	return &out
}

// Solve solves a·x = b. op names the system in any returned error.
func Solve(a mat.Matrix, b mat.Vector, op string) (*mat.VecDense, error) {
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, &simerr.LinearAlgebraError{Op: op, Err: err}
	}
	if !finite(x.RawVector().Data) {
		return nil, &simerr.LinearAlgebraError{Op: op + ": non-finite solution"}
	}
	return &x, nil
}

// SolveMatrix solves a·X = b for a matrix right-hand side.
func SolveMatrix(a, b mat.Matrix, op string) (*mat.Dense, error) {
	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return nil, &simerr.LinearAlgebraError{Op: op, Err: err}
	}
	if !finite(x.RawMatrix().Data) {
		return nil, &simerr.LinearAlgebraError{Op: op + ": non-finite solution"}
	}
	return &x, nil
}

// Inverse returns a⁻¹. op names the matrix in any returned error.
func Inverse(a mat.Matrix, op string) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, &simerr.LinearAlgebraError{Op: op, Err: err}
	}
	return &inv, nil
}

// SolveNormal solves the normal equations (X'X)β = X'y.
func SolveNormal(x *mat.Dense, y []float64) (*mat.VecDense, error) {
	xtx := CrossProduct(x, x)
	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))
	return Solve(xtx, &xty, "normal equations")
}

// Residuals returns y − Xβ.
func Residuals(x *mat.Dense, y []float64, beta mat.Vector) []float64 {
	var fitted mat.VecDense
	fitted.MulVec(x, beta)
	out := make([]float64, len(y))
	floats.SubTo(out, y, fitted.RawVector().Data)
	return out
}

// SumSquares returns Σ v_i².
func SumSquares(v []float64) float64 {
	return floats.Dot(v, v)
}

// InfNorm returns max |v_i|.
func InfNorm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, math.Inf(1))
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
