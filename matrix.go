// This code is adapted from RTKLIB.
// The author gratefully acknowledges T.Takasu for his outstanding contribution in developing RTKLIB.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// All matrices in this file are stored by column-major order (A[i+j*n] is row i, column j).

// Zeros returns an n x m matrix filled with zeros
func Zeros(n, m int) []float64 {
	return make([]float64, n*m)
}

// Eye returns the n x n identity matrix
func Eye(n int) []float64 {
	A := make([]float64, n*n)
	for i := 0; i < n; i++ {
		A[i+i*n] = 1.0
	}
	return A
}

// MatCopy copies the n x m matrix B into A
func MatCopy(A, B []float64, n, m int) {
	copy(A[:n*m], B[:n*m])
}

// Dot returns the inner product of the first n elements of a and b
func Dot(a, b []float64, n int) float64 {
	c := 0.0
	for i := 0; i < n; i++ {
		c += a[i] * b[i]
	}
	return c
}

// Norm returns the euclidean norm of the first n elements of a
func Norm(a []float64, n int) float64 {
	return math.Sqrt(Dot(a, a, n))
}

// MatMul computes C = alpha * op(A) * op(B) + beta * C
// - tr selects the transposition of A and B ("NN", "NT", "TN", "TT")
// - op(A) is n x m, op(B) is m x k, C is n x k
// - Dimensions are not checked
func MatMul(tr string, n, k, m int, alpha float64, A, B []float64, beta float64, C []float64) {
	var f int
	if tr[0] == 'N' {
		if tr[1] == 'N' {
			f = 1
		} else {
			f = 2
		}
	} else {
		if tr[1] == 'N' {
			f = 3
		} else {
			f = 4
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			d := 0.0
			switch f {
			case 1:
				for x := 0; x < m; x++ {
					d += A[i+x*n] * B[x+j*m]
				}
			case 2:
				for x := 0; x < m; x++ {
					d += A[i+x*n] * B[j+x*k]
				}
			case 3:
				for x := 0; x < m; x++ {
					d += A[x+i*m] * B[x+j*m]
				}
			case 4:
				for x := 0; x < m; x++ {
					d += A[x+i*m] * B[j+x*k]
				}
			}
			if beta == 0.0 {
				C[i+j*n] = alpha * d
			} else {
				C[i+j*n] = alpha*d + beta*C[i+j*n]
			}
		}
	}
}

// LU decomposition with partial pivoting (in place)
func ludcmp(A []float64, n int, indx []int) error {
	vv := make([]float64, n)
	imax := 0
	for i := 0; i < n; i++ {
		big := 0.0
		for j := 0; j < n; j++ {
			if tmp := math.Abs(A[i+j*n]); tmp > big {
				big = tmp
			}
		}
		if big > 0.0 {
			vv[i] = 1.0 / big
		} else {
			return errors.Wrapf(ErrSingular, "row %d is zero", i)
		}
	}
	for j := 0; j < n; j++ {
		for i := 0; i < j; i++ {
			s := A[i+j*n]
			for k := 0; k < i; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
		}
		big := 0.0
		for i := j; i < n; i++ {
			s := A[i+j*n]
			for k := 0; k < j; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
			if tmp := vv[i] * math.Abs(s); tmp >= big {
				big = tmp
				imax = i
			}
		}
		if j != imax {
			for k := 0; k < n; k++ {
				A[imax+k*n], A[j+k*n] = A[j+k*n], A[imax+k*n]
			}
			vv[imax] = vv[j]
		}
		indx[j] = imax
		if A[j+j*n] == 0.0 {
			return errors.Wrapf(ErrSingular, "zero pivot at %d", j)
		}
		if j != n-1 {
			tmp := 1.0 / A[j+j*n]
			for i := j + 1; i < n; i++ {
				A[i+j*n] *= tmp
			}
		}
	}
	return nil
}

// LU back-substitution for the column vector b[k:k+n]
func lubksb(A []float64, n int, indx []int, b []float64, k int) {
	ii := -1
	for i := 0; i < n; i++ {
		ip := indx[i]
		s := b[k+ip]
		b[k+ip] = b[k+i]
		if ii >= 0 {
			for j := ii; j < i; j++ {
				s -= A[i+j*n] * b[k+j]
			}
		} else if s != 0 {
			ii = i
		}
		b[k+i] = s
	}
	for i := n - 1; i >= 0; i-- {
		s := b[k+i]
		for j := i + 1; j < n; j++ {
			s -= A[i+j*n] * b[k+j]
		}
		b[k+i] = s / A[i+i*n]
	}
}

// Inverse replaces the n x n matrix A by its inverse
// - Returns ErrSingular if A is singular. A is left unmodified in that case.
func Inverse(A []float64, n int) error {
	indx := make([]int, n)
	B := make([]float64, n*n)
	copy(B, A[:n*n])
	if err := ludcmp(B, n, indx); err != nil {
		return err
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			A[i+j*n] = 0.0
		}
		A[j+j*n] = 1.0
		lubksb(B, n, indx, A, j*n)
	}
	return nil
}

// Solve computes X = A^-1 * Y (tr="N") or X = A^-T * Y (tr="T")
// - A is n x n, Y and X are n x m
func Solve(tr string, A, Y []float64, n, m int, X []float64) error {
	B := make([]float64, n*n)
	copy(B, A[:n*n])
	if err := Inverse(B, n); err != nil {
		return err
	}
	if tr[0] == 'N' {
		MatMul("NN", n, m, n, 1.0, B, Y, 0.0, X)
	} else {
		MatMul("TN", n, m, n, 1.0, B, Y, 0.0, X)
	}
	return nil
}

// Cholesky returns the lower triangular L with A = L * L^T
// - A must be symmetric positive definite, otherwise L contains NaN
func Cholesky(A []float64, n int) []float64 {
	L := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			s := 0.0
			for k := 0; k < j; k++ {
				s += L[i+k*n] * L[j+k*n]
			}
			if i == j {
				L[i+i*n] = math.Sqrt(A[i+i*n] - s)
			} else {
				L[i+j*n] = (A[i+j*n] - s) / L[j+j*n]
			}
		}
	}
	return L
}

// LSQ solves the normal equation x = (A A^T)^-1 A y
// - A is the transpose of the (weighted) design matrix (n x m), y has m elements
// - Returns x (n) and its covariance Q = (A A^T)^-1 (n x n)
func LSQ(A, y []float64, n, m int) (x, Q []float64, err error) {
	if m < n {
		return nil, nil, errors.Wrapf(ErrDimension, "lsq: %d measurements for %d parameters", m, n)
	}
	Ay := make([]float64, n)
	Q = make([]float64, n*n)
	MatMul("NN", n, 1, m, 1.0, A, y, 0.0, Ay)
	MatMul("NT", n, n, m, 1.0, A, A, 0.0, Q)
	if err = Inverse(Q, n); err != nil {
		return nil, nil, errors.Wrap(err, "lsq")
	}
	x = make([]float64, n)
	MatMul("NN", n, 1, n, 1.0, Q, Ay, 0.0, x)
	return x, Q, nil
}

// Trace returns the sum of the diagonal elements of A
func Trace(A []float64, n int) float64 {
	t := 0.0
	for i := 0; i < n; i++ {
		t += A[i+i*n]
	}
	return t
}

// Eigen returns the eigenvalues of the n x n matrix A as real and imaginary parts
// - The Hessenberg reduction and the double-shift QR iteration are done by gonum (LAPACK Dgeev)
func Eigen(A []float64, n int) (re, im []float64, err error) {
	if n <= 0 || len(A) < n*n {
		return nil, nil, errors.Wrapf(ErrDimension, "eigen: n=%d, len=%d", n, len(A))
	}
	var eig mat.Eigen
	if ok := eig.Factorize(colMajor(A, n, n), mat.EigenNone); !ok {
		return nil, nil, ErrNotConverged
	}
	vals := eig.Values(nil)
	re = make([]float64, n)
	im = make([]float64, n)
	for i, v := range vals {
		re[i] = real(v)
		im[i] = imag(v)
	}
	return re, im, nil
}

// Det returns the determinant of A as the product of its eigenvalues
func Det(A []float64, n int) (float64, error) {
	re, im, err := Eigen(A, n)
	if err != nil {
		return 0, errors.Wrap(err, "det")
	}
	p := complex(1, 0)
	for i := range re {
		p *= complex(re[i], im[i])
	}
	if cmplx.IsNaN(p) {
		return 0, ErrNotConverged
	}
	return real(p), nil
}

// colMajor returns an r x c view of the column-major data
func colMajor(data []float64, r, c int) mat.Matrix {
	return mat.NewDense(c, r, data[:r*c]).T()
}
