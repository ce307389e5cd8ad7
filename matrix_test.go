// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// Well-conditioned random n x n matrix (diagonally dominant)
func randMat(r *rand.Rand, n int) []float64 {
	A := make([]float64, n*n)
	for i := range A {
		A[i] = r.Float64()*2.0 - 1.0
	}
	for i := 0; i < n; i++ {
		A[i+i*n] += float64(n)
	}
	return A
}

func TestEyeZeros(t *testing.T) {
	assert := assert.New(t)
	n := 4
	I := Eye(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				assert.Equal(1.0, I[i+j*n])
			} else {
				assert.Equal(0.0, I[i+j*n])
			}
		}
	}
	assert.Len(Zeros(3, 5), 15)
	assert.Equal(4.0, Trace(I, n))
}

func TestDotNorm(t *testing.T) {
	assert := assert.New(t)
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{7, 8, 9, 1.4, 1.6, 7.8}
	assert.Equal(0.0, Dot(a, b, 0))
	assert.InDelta(7+16+27+5.6+8+46.8, Dot(a, b, 6), 1e-12)
	assert.InDelta(math.Sqrt(91), Norm(a, 6), 1e-12)
}

func TestMatMul(t *testing.T) {
	assert := assert.New(t)
	A := []float64{1, 4, 2, 5, 3, 6}     // 2 x 3
	At := []float64{1, 2, 3, 4, 5, 6}    // 3 x 2
	B := []float64{7, 9, 11, 8, 10, 12}  // 3 x 2
	Bt := []float64{7, 8, 9, 10, 11, 12} // 2 x 3
	AB := []float64{58, 139, 64, 154}    // 2 x 2

	for _, c := range []struct {
		tr   string
		A, B []float64
	}{
		{"NN", A, B},
		{"TN", At, B},
		{"NT", A, Bt},
		{"TT", At, Bt},
	} {
		C := make([]float64, 4)
		MatMul(c.tr, 2, 2, 3, 1.0, c.A, c.B, 0.0, C)
		assert.True(floats.EqualApprox(AB, C, 1e-12), c.tr)
	}

	C := []float64{1, 1, 1, 1}
	MatMul("NN", 2, 2, 3, 2.0, A, B, 1.0, C)
	assert.Equal([]float64{117, 279, 129, 309}, C)
}

func TestInverseRoundTrip(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 3, 5, 8, 12} {
		A := randMat(r, n)
		Ai := append([]float64(nil), A...)
		require.NoError(t, Inverse(Ai, n))

		I := make([]float64, n*n)
		MatMul("NN", n, n, n, 1.0, A, Ai, 0.0, I)
		assert.True(floats.EqualApprox(Eye(n), I, 1e-9), "A*inv(A) n=%d", n)

		Aii := append([]float64(nil), Ai...)
		require.NoError(t, Inverse(Aii, n))
		for i := range A {
			assert.InDelta(A[i], Aii[i], 1e-9*math.Max(1, math.Abs(A[i])), "inv(inv(A)) n=%d", n)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	assert := assert.New(t)
	for _, A := range [][]float64{
		{1, 2, 2, 4}, // rank 1
		{0, 1, 0, 1}, // zero row
		{0, 0, 0, 0},
	} {
		org := append([]float64(nil), A...)
		err := Inverse(A, 2)
		assert.True(errors.Is(err, ErrSingular), "%v", org)
		assert.Equal(org, A)
	}
}

func TestSolve(t *testing.T) {
	assert := assert.New(t)
	A := []float64{4, 1, 2, 3} // [[4,2],[1,3]]
	Y := []float64{8, 7, 2, 4} // two right hand sides
	X := make([]float64, 4)
	require.NoError(t, Solve("N", A, Y, 2, 2, X))
	AX := make([]float64, 4)
	MatMul("NN", 2, 2, 2, 1.0, A, X, 0.0, AX)
	assert.True(floats.EqualApprox(Y, AX, 1e-12))

	require.NoError(t, Solve("T", A, Y, 2, 2, X))
	MatMul("TN", 2, 2, 2, 1.0, A, X, 0.0, AX)
	assert.True(floats.EqualApprox(Y, AX, 1e-12))

	assert.True(errors.Is(Solve("N", []float64{1, 2, 2, 4}, Y, 2, 2, X), ErrSingular))
}

func TestCholesky(t *testing.T) {
	assert := assert.New(t)
	A := []float64{4, 2, 2, 3}
	L := Cholesky(A, 2)
	assert.True(floats.EqualApprox([]float64{2, 1, 0, math.Sqrt2}, L, 1e-12))

	r := rand.New(rand.NewSource(2))
	n := 6
	G := randMat(r, n)
	S := make([]float64, n*n)
	MatMul("NT", n, n, n, 1.0, G, G, 0.0, S)
	L = Cholesky(S, n)
	LLt := make([]float64, n*n)
	MatMul("NT", n, n, n, 1.0, L, L, 0.0, LLt)
	assert.True(floats.EqualApprox(S, LLt, 1e-9))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			assert.Equal(0.0, L[i+j*n])
		}
	}

	L = Cholesky([]float64{1, 2, 2, 1}, 2) // not positive definite
	assert.True(math.IsNaN(L[3]))
}

func TestLSQ(t *testing.T) {
	assert := assert.New(t)
	// y = 1 + 2 t at t = 0..3
	A := []float64{1, 0, 1, 1, 1, 2, 1, 3}
	y := []float64{1, 3, 5, 7}
	x, Q, err := LSQ(A, y, 2, 4)
	require.NoError(t, err)
	assert.True(floats.EqualApprox([]float64{1, 2}, x, 1e-12))
	// (A A^T)^-1 with A A^T = [[4,6],[6,14]]
	assert.True(floats.EqualApprox([]float64{0.7, -0.3, -0.3, 0.2}, Q, 1e-12))

	_, _, err = LSQ(A, y, 4, 2)
	assert.True(errors.Is(err, ErrDimension))

	_, _, err = LSQ([]float64{1, 1, 1, 1}, []float64{1, 2}, 2, 2)
	assert.True(errors.Is(err, ErrSingular))
}

func TestEigenDet(t *testing.T) {
	assert := assert.New(t)

	re, im, err := Eigen([]float64{2, 0, 0, 3}, 2)
	require.NoError(t, err)
	assert.ElementsMatch([]float64{2, 3}, re)
	assert.Equal([]float64{0, 0}, im)

	d, err := Det([]float64{2, 1, 1, 3}, 2)
	require.NoError(t, err)
	assert.InDelta(5.0, d, 1e-12)

	// rotation by 90 degrees has eigenvalues +-i
	re, im, err = Eigen([]float64{0, 1, -1, 0}, 2)
	require.NoError(t, err)
	assert.InDeltaSlice([]float64{0, 0}, re, 1e-12)
	assert.InDelta(0.0, im[0]+im[1], 1e-12)
	assert.InDelta(1.0, math.Abs(im[0]), 1e-12)
	d, err = Det([]float64{0, 1, -1, 0}, 2)
	require.NoError(t, err)
	assert.InDelta(1.0, d, 1e-12)

	r := rand.New(rand.NewSource(3))
	n := 5
	A := randMat(r, n)
	d, err = Det(A, n)
	require.NoError(t, err)
	// compare with the product of the LU pivots
	indx := make([]int, n)
	B := append([]float64(nil), A...)
	require.NoError(t, ludcmp(B, n, indx))
	dl := 1.0
	for i := 0; i < n; i++ {
		dl *= B[i+i*n]
		if indx[i] != i {
			dl = -dl
		}
	}
	assert.InDelta(dl, d, 1e-9*math.Abs(dl))

	_, _, err = Eigen(nil, 0)
	assert.True(errors.Is(err, ErrDimension))
}
