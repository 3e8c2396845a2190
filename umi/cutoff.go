package umi

import "math"

// polynomial coefficients for the umi_cutoff calibration curve, highest
// degree term first. Buckets are keyed by round(errorRate*1000).
var (
	coeffsLow  = []float64{-9.59e-27, 3.27e-21, -3.05e-16, 1.2e-11, -2.19e-7, 4.044e-3, 2.273}
	coeffsMid  = []float64{1.09e-26, 7.82e-22, -1.93e-16, 1.01e-11, -2.31e-7, 6.45e-3, 2.872}
	coeffsHigh = []float64{-1.24e-21, 3.53e-17, -3.90e-13, 2.12e-9, -6.06e-6, 1.80e-2, 3.15}
)

func evalPoly(coeffs []float64, m float64) float64 {
	degree := len(coeffs) - 1
	var sum float64
	for i, c := range coeffs {
		sum += c * math.Pow(m, float64(degree-i))
	}
	return sum
}

// Cutoff computes the minimum UMI family size (exclusive) required to
// survive abundance filtering, given the peak family size m and the
// platform's per-base error rate. It is a direct port of the calibrated
// piecewise polynomial used throughout the TCS toolchain; do not refit.
func Cutoff(m int, errorRate float64) int {
	if m <= 10 {
		return 2
	}
	bucket := int(math.Round(errorRate * 1000))

	var coeffs []float64
	switch {
	case bucket <= 4:
		coeffs = coeffsLow
	case bucket <= 14:
		coeffs = coeffsMid
	default:
		coeffs = coeffsHigh
		if m > 8500 {
			return int(math.Round(0.0079*float64(m) + 9.4869))
		}
	}
	n := int(math.Round(evalPoly(coeffs, float64(m))))
	if n < 2 {
		return 2
	}
	return n
}
