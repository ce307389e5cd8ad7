// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Chi-squared test (α=0.001)
// - Returns the 0.999 quantile for n degrees of freedom (1 <= n <= 100), 0 otherwise
func ChiSqr(n int) float64 {
	v := [...]float64{
		10.8, 13.8, 16.3, 18.5, 20.5, 22.5, 24.3, 26.1, 27.9, 29.6,
		31.3, 32.9, 34.5, 36.1, 37.7, 39.3, 40.8, 42.3, 43.8, 45.3,
		46.8, 48.3, 49.7, 51.2, 52.6, 54.1, 55.5, 56.9, 58.3, 59.7,
		61.1, 62.5, 63.9, 65.2, 66.6, 68.0, 69.3, 70.7, 72.1, 73.4,
		74.7, 76.0, 77.3, 78.6, 80.0, 81.3, 82.6, 84.0, 85.4, 86.7,
		88.0, 89.3, 90.6, 91.9, 93.3, 94.7, 96.0, 97.4, 98.7, 100,
		101, 102, 103, 104, 105, 107, 108, 109, 110, 112,
		113, 114, 115, 116, 118, 119, 120, 122, 123, 125,
		126, 127, 128, 129, 131, 132, 133, 134, 135, 137,
		138, 139, 140, 142, 143, 144, 145, 147, 148, 149}
	if n >= 1 && n <= len(v) {
		return v[n-1]
	}
	return 0
}

// ChiSqrCDF returns P(X <= x) for the chi-square distribution with n degrees of freedom
func ChiSqrCDF(n int, x float64) float64 {
	return distuv.ChiSquared{K: float64(n)}.CDF(x)
}

// ChiSqrQuantile returns x with P(X <= x) = p for n degrees of freedom
func ChiSqrQuantile(n int, p float64) float64 {
	return distuv.ChiSquared{K: float64(n)}.Quantile(p)
}

// NormCDF returns the standard normal cumulative distribution at x
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// InnovationTest computes the normalized innovation squared v^T Q^-1 v
// and reports whether it is within the chi-square quantile of probability 1-alpha
// - v has m elements, Q is the m x m innovation covariance
func InnovationTest(v, Q []float64, m int, alpha float64) (nis float64, ok bool, err error) {
	if m <= 0 || len(v) < m || len(Q) < m*m {
		return 0, false, errors.Wrapf(ErrDimension, "innovation test: m=%d", m)
	}
	Qi := make([]float64, m*m)
	copy(Qi, Q[:m*m])
	if err = Inverse(Qi, m); err != nil {
		return 0, false, errors.Wrap(err, "innovation test")
	}
	w := make([]float64, m)
	MatMul("NN", m, 1, m, 1.0, Qi, v, 0.0, w)
	nis = Dot(v, w, m)
	return nis, nis <= ChiSqrQuantile(m, 1.0-alpha), nil
}
