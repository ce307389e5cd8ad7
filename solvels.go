// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SolveLS solves the observation equation using weighted least squares
// - dx = (G^t W G)^-1 G^t W dr
// - Return the error covariance matrix (G^t W G)^-1 as cov
func SolveLS(G mat.Matrix, dr mat.Vector, W mat.Matrix) (dx *mat.VecDense, cov *mat.Dense, err error) {

	n1, m1 := G.Dims()
	n2, m2 := W.Dims()
	if n1 != n2 {
		return nil, nil, errors.Wrapf(ErrDimension, "G^T(%d x %d), W(%d x %d)", m1, n1, n2, m2)
	}
	if l1 := dr.Len(); l1 != m2 {
		return nil, nil, errors.Wrapf(ErrDimension, "W(%d x %d), dr(%d x 1)", n2, m2, l1)
	}
	if n1 < m1 {
		return nil, nil, errors.Wrapf(ErrDimension, "%d observations for %d unknowns", n1, m1)
	}

	// A (G^t W G)
	var WG, A mat.Dense
	WG.Mul(W, G)
	A.Mul(G.T(), &WG)

	// b (G^t W dr)
	var GtW mat.Dense
	GtW.Mul(G.T(), W)
	var b mat.VecDense
	b.MulVec(&GtW, dr)

	// (G^t W G)^-1 with the LU inverse, a singular normal matrix is an error
	Ai := make([]float64, m1*m1)
	for i := 0; i < m1; i++ {
		for j := 0; j < m1; j++ {
			Ai[i+j*m1] = A.At(i, j)
		}
	}
	if err = Inverse(Ai, m1); err != nil {
		return nil, nil, errors.Wrap(err, "SolveLS")
	}
	cov = mat.DenseCopyOf(colMajor(Ai, m1, m1))

	// x = A^-1 b
	dx = mat.NewVecDense(m1, nil)
	dx.MulVec(cov, &b)
	return dx, cov, nil
}
