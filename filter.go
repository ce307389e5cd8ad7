// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Filter performs the Kalman filter measurement update in place
//
//	K = P H (H^T P H + R)^-1, x = x + K D v, P = (I - K H^T) P
//
// - x (n), P (n x n), H (n x m, transpose of the design matrix), v (m), R (m x m), D (m x m or nil)
// - Only the states with x[i] != 0 and P[i,i] > 0 are updated. Other states and their
//   cross covariances are left as they are.
// - D scales the correction only, the gain is computed without it.
// - If H^T P H + R is singular, ErrSingular is returned and x, P are not modified.
func Filter(x, P, H, v, R []float64, n, m int, D []float64) error {
	if len(x) < n || len(P) < n*n || len(H) < n*m || len(v) < m || len(R) < m*m {
		return errors.Wrapf(ErrDimension, "filter: n=%d, m=%d", n, m)
	}
	if m == 0 {
		return nil
	}
	if D != nil && len(D) < m*m {
		return errors.Wrapf(ErrDimension, "filter: D has %d elements for m=%d", len(D), m)
	}

	// Select the active states
	ix := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if x[i] != 0.0 && P[i+i*n] > 0.0 {
			ix = append(ix, i)
		}
	}
	k := len(ix)
	if k == 0 {
		// Nothing to update, but the innovation covariance must still be regular
		Q := make([]float64, m*m)
		copy(Q, R[:m*m])
		return errors.Wrap(Inverse(Q, m), "filter")
	}

	// Compact the active sub-state
	x_ := make([]float64, k)
	P_ := mat.NewDense(k, k, nil)
	H_ := mat.NewDense(k, m, nil)
	for i, ii := range ix {
		x_[i] = x[ii]
		for j, jj := range ix {
			P_.Set(i, j, P[ii+jj*n])
		}
		for j := 0; j < m; j++ {
			H_.Set(i, j, H[ii+j*n])
		}
	}

	xp, Pp, err := filterUpdate(x_, P_, H_, v[:m], colMajor(R, m, m), m, D)
	if err != nil {
		return errors.Wrap(err, "filter")
	}

	// Scatter back to the original indices
	for i, ii := range ix {
		x[ii] = xp[i]
		for j, jj := range ix {
			P[ii+jj*n] = Pp.At(i, j)
		}
	}
	return nil
}

// filterUpdate runs the update on the compacted state
func filterUpdate(x []float64, P, H *mat.Dense, v []float64, R mat.Matrix, m int, D []float64) ([]float64, *mat.Dense, error) {
	k := len(x)

	// F = P H, S = H^T F + R
	var F, S mat.Dense
	F.Mul(P, H)
	S.Mul(H.T(), &F)
	S.Add(&S, R)

	// S^-1 by LU decomposition so that a singular S is reported instead of NaN
	Si := make([]float64, m*m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			Si[i+j*m] = S.At(i, j)
		}
	}
	if err := Inverse(Si, m); err != nil {
		return nil, nil, err
	}

	// K = F S^-1
	var K mat.Dense
	K.Mul(&F, colMajor(Si, m, m))

	// x = x + K D v
	var KD mat.Dense
	if D != nil {
		KD.Mul(&K, colMajor(D, m, m))
	} else {
		KD.CloneFrom(&K)
	}
	dx := mat.NewVecDense(k, nil)
	dx.MulVec(&KD, mat.NewVecDense(m, v))
	xp := make([]float64, k)
	floats.AddTo(xp, x, dx.RawVector().Data)

	// P = (I - K H^T) P
	I := mat.NewDiagDense(k, nil)
	for i := 0; i < k; i++ {
		I.SetDiag(i, 1.0)
	}
	var A, B, Pp mat.Dense
	A.Mul(&K, H.T())
	B.Sub(I, &A)
	Pp.Mul(&B, P)
	return xp, &Pp, nil
}

// Smoother combines the forward and the backward solutions of a fixed-interval smoother
//
//	Qs = (Qf^-1 + Qb^-1)^-1, xs = Qs (Qf^-1 xf + Qb^-1 xb)
//
// - Returns ErrSingular if Qf, Qb or Qf^-1 + Qb^-1 is singular. No output is produced then.
func Smoother(xf, Qf, xb, Qb []float64, n int) (xs, Qs []float64, err error) {
	if len(xf) < n || len(xb) < n || len(Qf) < n*n || len(Qb) < n*n {
		return nil, nil, errors.Wrapf(ErrDimension, "smoother: n=%d", n)
	}
	invQf := make([]float64, n*n)
	invQb := make([]float64, n*n)
	copy(invQf, Qf[:n*n])
	copy(invQb, Qb[:n*n])
	if err := Inverse(invQf, n); err != nil {
		return nil, nil, errors.Wrap(err, "smoother: forward covariance")
	}
	if err := Inverse(invQb, n); err != nil {
		return nil, nil, errors.Wrap(err, "smoother: backward covariance")
	}
	Q := make([]float64, n*n)
	floats.AddTo(Q, invQf, invQb)
	if err := Inverse(Q, n); err != nil {
		return nil, nil, errors.Wrap(err, "smoother: information sum")
	}
	xx := make([]float64, n)
	MatMul("NN", n, 1, n, 1.0, invQf, xf, 0.0, xx)
	MatMul("NN", n, 1, n, 1.0, invQb, xb, 1.0, xx)
	xs = make([]float64, n)
	MatMul("NN", n, 1, n, 1.0, Q, xx, 0.0, xs)
	return xs, Q, nil
}
