package estimate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/causalsim/internal/linalg"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// ClusterRobust returns the cluster-robust sandwich covariance
//
//	V = (X'X)⁻¹ [Σ_g s_g s_g'] (X'X)⁻¹ · c,  s_g = Σ_{i∈g} x_i u_i
//
// with the small-sample factor c from ClusterCorrection.
func ClusterRobust(x *mat.Dense, resid []float64, clusters []int) (*mat.Dense, error) {
	n, k := x.Dims()
	if len(resid) != n || len(clusters) != n {
		return nil, simerr.Degenerate("cluster-robust: %d rows, %d residuals, %d cluster ids", n, len(resid), len(clusters))
	}
	bread, err := linalg.Inverse(linalg.CrossProduct(x, x), "cluster-robust X'X")
	if err != nil {
		return nil, err
	}

	scores := make(map[int][]float64)
	var order []int
	for i, g := range clusters {
		s, ok := scores[g]
		if !ok {
			s = make([]float64, k)
			scores[g] = s
			order = append(order, g)
		}
		for j := 0; j < k; j++ {
			s[j] += x.At(i, j) * resid[i]
		}
	}

	meat := mat.NewDense(k, k, nil)
	for _, g := range order {
		s := mat.NewVecDense(k, scores[g])
		meat.RankOne(meat, 1, s, s)
	}

	var v mat.Dense
	v.Product(bread, meat, bread)
	v.Scale(ClusterCorrection(len(order), n, k), &v)
	return &v, nil
}

// ClusterCorrection is the finite-sample factor (m/(m−1))·((n−1)/(n−k)) for
// m clusters, n rows and k parameters. It is 1 when m ≤ 1 or n ≤ k.
func ClusterCorrection(m, n, k int) float64 {
	if m <= 1 || n <= k {
		return 1
	}
	return (float64(m) / float64(m-1)) * (float64(n-1) / float64(n-k))
}
